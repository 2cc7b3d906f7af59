package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"meatledger/backend/internal/domain"
)

// findOrphans lists orders pointing at unknown customers, then transactions
// pointing at unknown customers or suppliers, in store order. Transactions
// with an unrecognised entity type cannot be resolved and are left alone.
func findOrphans(customerIDs map[string]bool, supplierIDs map[string]bool, orders []domain.Order, transactions []domain.Transaction) []domain.OrphanRef {
	orphans := make([]domain.OrphanRef, 0)
	for _, o := range orders {
		if !customerIDs[o.CustomerID] {
			orphans = append(orphans, domain.OrphanRef{
				Collection: "orders",
				ID:         o.ID,
				EntityType: string(domain.EntityCustomer),
				EntityID:   o.CustomerID,
			})
		}
	}
	for _, t := range transactions {
		var known bool
		switch t.EntityType {
		case domain.EntityCustomer:
			known = customerIDs[t.EntityID]
		case domain.EntitySupplier:
			known = supplierIDs[t.EntityID]
		default:
			continue
		}
		if !known {
			orphans = append(orphans, domain.OrphanRef{
				Collection: "transactions",
				ID:         t.ID,
				EntityType: string(t.EntityType),
				EntityID:   t.EntityID,
			})
		}
	}
	return orphans
}

func orphanMessage(o domain.OrphanRef) string {
	if o.Collection == "orders" {
		return fmt.Sprintf("Orphaned order %s references non-existent customer %s", o.ID, o.EntityID)
	}
	return fmt.Sprintf("Orphaned transaction %s references non-existent %s %s", o.ID, o.EntityType, o.EntityID)
}

// findDuplicates returns one entry per repeated occurrence of an id after its
// first, so [A, B, A, A] yields [A, A].
func findDuplicates(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	duplicates := make([]string, 0)
	for _, id := range ids {
		if seen[id] {
			duplicates = append(duplicates, id)
			continue
		}
		seen[id] = true
	}
	return duplicates
}

func duplicateMessages(label string, ids []string) []string {
	messages := make([]string, 0)
	for _, id := range findDuplicates(ids) {
		messages = append(messages, fmt.Sprintf("Duplicate %s ID: %s", label, id))
	}
	return messages
}

// duplicateBalanceMessages reports repeated customer or supplier ids like
// duplicateMessages. Only the first record's balance is compared, so a repeat
// whose stored balance differs names the value that was skipped.
func duplicateBalanceMessages[T interface{ RecordID() string }](label string, field string, records []T, balance func(T) decimal.Decimal) []string {
	first := make(map[string]decimal.Decimal, len(records))
	messages := make([]string, 0)
	for _, rec := range records {
		id := rec.RecordID()
		b := balance(rec)
		kept, seen := first[id]
		if !seen {
			first[id] = b
			continue
		}
		msg := fmt.Sprintf("Duplicate %s ID: %s", label, id)
		if !b.Equal(kept) {
			msg += fmt.Sprintf(" (%s %s not compared, first record has %s)", field, b.String(), kept.String())
		}
		messages = append(messages, msg)
	}
	return messages
}

func recordIDs[T interface{ RecordID() string }](records []T) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.RecordID()
	}
	return ids
}
