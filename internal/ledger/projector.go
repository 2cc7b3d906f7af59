// Package ledger derives the cached customer and supplier balances from the
// order and transaction history.
package ledger

import (
	"github.com/shopspring/decimal"

	"meatledger/backend/internal/domain"
)

// Balances maps an entity id to its derived balance.
type Balances map[string]decimal.Decimal

// ProjectCustomerBalances computes, for every known customer, the sum of its
// unpaid order totals minus the sum of its receipts. Values are not floored;
// references to unknown customers are skipped.
func ProjectCustomerBalances(customers []domain.Customer, orders []domain.Order, transactions []domain.Transaction) Balances {
	balances := make(Balances, len(customers))
	for _, c := range customers {
		balances[c.ID] = decimal.Zero
	}

	for _, o := range orders {
		current, known := balances[o.CustomerID]
		if !known || IsPaid(o) {
			continue
		}
		balances[o.CustomerID] = current.Add(OrderTotal(o))
	}

	for _, t := range transactions {
		if t.EntityType != domain.EntityCustomer || t.Type != domain.TransactionReceipt {
			continue
		}
		current, known := balances[t.EntityID]
		if !known {
			continue
		}
		balances[t.EntityID] = current.Sub(TransactionAmount(t))
	}

	return balances
}

// ProjectSupplierBalances computes, for every known supplier, its expenses
// minus its payments. Other transaction types are ignored.
func ProjectSupplierBalances(suppliers []domain.Supplier, transactions []domain.Transaction) Balances {
	balances := make(Balances, len(suppliers))
	for _, s := range suppliers {
		balances[s.ID] = decimal.Zero
	}

	for _, t := range transactions {
		if t.EntityType != domain.EntitySupplier {
			continue
		}
		current, known := balances[t.EntityID]
		if !known {
			continue
		}
		switch t.Type {
		case domain.TransactionExpense:
			balances[t.EntityID] = current.Add(TransactionAmount(t))
		case domain.TransactionPayment:
			balances[t.EntityID] = current.Sub(TransactionAmount(t))
		}
	}

	return balances
}
