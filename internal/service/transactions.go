package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/ledger"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/xid"
)

func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	transactions, err := s.repo.Transactions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	entityID := strings.TrimSpace(filter.EntityID)
	entityType := domain.EntityType(strings.ToLower(strings.TrimSpace(string(filter.EntityType))))
	dated := filter.From != nil || filter.To != nil

	filtered := make([]domain.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if entityID != "" && t.EntityID != entityID {
			continue
		}
		if entityType != "" && t.EntityType != entityType {
			continue
		}
		if dated && !ledger.InDateRange(t.Date, filter.From, filter.To) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

// RecordTransaction stores a money movement and then applies it to the cached
// balance of the entity:
//
//	customer receipt   pendingAmount -= amount
//	supplier expense   debt += amount
//	supplier payment   debt -= amount
//
// Balances never go below zero. Other combinations are stored without a
// balance change.
func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	req.EntityID = strings.TrimSpace(req.EntityID)
	req.EntityType = domain.EntityType(strings.ToLower(strings.TrimSpace(string(req.EntityType))))
	req.Type = domain.TransactionType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Transaction{}, err
	}

	switch req.EntityType {
	case domain.EntityCustomer:
		if _, err := s.repo.Customers.GetByID(ctx, req.EntityID); err != nil {
			return domain.Transaction{}, fmt.Errorf("customer %s: %w", req.EntityID, err)
		}
	case domain.EntitySupplier:
		if _, err := s.repo.Suppliers.GetByID(ctx, req.EntityID); err != nil {
			return domain.Transaction{}, fmt.Errorf("supplier %s: %w", req.EntityID, err)
		}
	}

	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}
	amount := decimal.NewFromFloat(req.Amount)
	saved, err := s.repo.Transactions.Create(ctx, domain.Transaction{
		ID:          xid.New("txn"),
		EntityID:    req.EntityID,
		EntityType:  req.EntityType,
		Type:        req.Type,
		Amount:      domain.NewAmount(amount),
		Date:        domain.NewDate(date),
		Description: req.Description,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.audit.Record(ctx, "transaction.create", string(saved.EntityType), saved.EntityID,
		fmt.Sprintf("id=%s,type=%s,amount=%s", saved.ID, saved.Type, saved.Amount))

	switch {
	case saved.EntityType == domain.EntityCustomer && saved.Type == domain.TransactionReceipt:
		err = s.adjustPending(ctx, saved.EntityID, amount.Neg())
	case saved.EntityType == domain.EntitySupplier && saved.Type == domain.TransactionExpense:
		err = s.adjustDebt(ctx, saved.EntityID, amount)
	case saved.EntityType == domain.EntitySupplier && saved.Type == domain.TransactionPayment:
		err = s.adjustDebt(ctx, saved.EntityID, amount.Neg())
	}
	if err != nil {
		return *saved, fmt.Errorf("update balance for transaction %s: %w", saved.ID, err)
	}
	return *saved, nil
}

// DeleteTransaction is an administrative removal. The cached balance is left
// as it is; the next reconciliation reports the difference.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	removed, err := s.repo.Transactions.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return store.ErrNotFound
	}
	s.audit.Record(ctx, "transaction.delete", "transaction", id, "")
	s.invalidate(ctx)
	return nil
}
