package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/ledger"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/xid"
)

func (s *Service) ListOrders(ctx context.Context, customerID string, window domain.DateRange) ([]domain.Order, error) {
	orders, err := s.repo.Orders.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	customerID = strings.TrimSpace(customerID)
	filtered := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if customerID != "" && o.CustomerID != customerID {
			continue
		}
		if (window.From != nil || window.To != nil) && !ledger.InDateRange(o.Date, window.From, window.To) {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// CreateOrder stores the order, takes the sold quantities out of stock and,
// for a pending order, adds the total to the customer's pending amount. Each
// of these is its own write; stock is allowed to go negative.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Status = domain.OrderStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	for i := range req.Items {
		req.Items[i].Type = domain.MeatType(strings.ToLower(strings.TrimSpace(string(req.Items[i].Type))))
		req.Items[i].Details = strings.TrimSpace(req.Items[i].Details)
	}
	if err := s.check(req); err != nil {
		return domain.Order{}, err
	}
	if req.Status == "" {
		req.Status = domain.OrderPending
	}

	customer, err := s.repo.Customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("customer %s: %w", req.CustomerID, err)
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			Type:     item.Type,
			Quantity: domain.NewAmount(decimal.NewFromFloat(item.Quantity)),
			Rate:     domain.NewAmount(decimal.NewFromFloat(item.Rate)),
			Details:  item.Details,
		})
	}
	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}

	order := domain.Order{
		ID:         xid.New("ord"),
		CustomerID: customer.ID,
		Items:      items,
		Total:      domain.NewAmount(ledger.ItemsTotal(items)),
		Status:     req.Status,
		Date:       domain.NewDate(date),
	}
	saved, err := s.repo.Orders.Create(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	s.audit.Record(ctx, "order.create", "order", saved.ID,
		fmt.Sprintf("customer=%s,total=%s,status=%s", saved.CustomerID, saved.Total, saved.Status))

	for _, item := range saved.Items {
		if err := s.takeStock(ctx, item); err != nil {
			return *saved, fmt.Errorf("update stock for order %s: %w", saved.ID, err)
		}
	}

	if !ledger.IsPaid(*saved) {
		if err := s.adjustPending(ctx, saved.CustomerID, ledger.OrderTotal(*saved)); err != nil {
			return *saved, fmt.Errorf("update balance for order %s: %w", saved.ID, err)
		}
	}
	return *saved, nil
}

// SetOrderStatus moves an order between pending and paid and mirrors the
// change on the customer's pending amount.
func (s *Service) SetOrderStatus(ctx context.Context, id string, req domain.OrderStatusRequest) (domain.Order, error) {
	req.Status = domain.OrderStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if err := s.check(req); err != nil {
		return domain.Order{}, err
	}

	current, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	wasPaid := ledger.IsPaid(*current)
	if wasPaid == (req.Status == domain.OrderPaid) {
		return *current, nil
	}

	updated, err := s.repo.Orders.Update(ctx, current.ID, map[string]any{"status": req.Status})
	if err != nil {
		return domain.Order{}, err
	}
	s.audit.Record(ctx, "order.set_status", "order", updated.ID, fmt.Sprintf("status=%s", updated.Status))

	delta := ledger.OrderTotal(*updated)
	if req.Status == domain.OrderPaid {
		delta = delta.Neg()
	}
	if err := s.adjustPending(ctx, updated.CustomerID, delta); err != nil {
		return *updated, fmt.Errorf("update balance for order %s: %w", updated.ID, err)
	}
	return *updated, nil
}

// DeleteOrder removes an order whatever its status. Transactions are not
// touched and stock is not returned.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	order, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.repo.Orders.Delete(ctx, order.ID)
	if err != nil {
		return err
	}
	if !removed {
		return store.ErrNotFound
	}
	s.audit.Record(ctx, "order.delete", "order", order.ID,
		fmt.Sprintf("customer=%s,total=%s,status=%s", order.CustomerID, order.Total, order.Status))

	if !ledger.IsPaid(*order) {
		if err := s.adjustPending(ctx, order.CustomerID, ledger.OrderTotal(*order).Neg()); err != nil {
			return fmt.Errorf("update balance for deleted order %s: %w", order.ID, err)
		}
	} else {
		s.invalidate(ctx)
	}
	return nil
}

func (s *Service) takeStock(ctx context.Context, item domain.OrderItem) error {
	inv, err := s.findInventory(ctx, item.Type)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("no inventory item for sold meat type", zap.String("type", string(item.Type)))
		return nil
	}
	if err != nil {
		return err
	}
	next := ledger.AmountOrZero(inv.Quantity).Sub(ledger.AmountOrZero(item.Quantity))
	_, err = s.repo.Inventory.Update(ctx, inv.ID, map[string]any{
		"quantity":  domain.NewAmount(next),
		"updatedAt": domain.NewDate(s.now()),
	})
	return err
}

// adjustPending adds delta to the customer's pending amount, never going
// below zero. A missing customer is logged and skipped.
func (s *Service) adjustPending(ctx context.Context, customerID string, delta decimal.Decimal) error {
	defer s.invalidate(ctx)

	c, err := s.repo.Customers.GetByID(ctx, customerID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("balance update skipped for unknown customer", zap.String("customer_id", customerID))
		return nil
	}
	if err != nil {
		return err
	}
	next := ledger.Floor(ledger.AmountOrZero(c.PendingAmount).Add(delta))
	_, err = s.repo.Customers.Update(ctx, c.ID, map[string]any{"pendingAmount": domain.NewAmount(next)})
	return err
}

func (s *Service) adjustDebt(ctx context.Context, supplierID string, delta decimal.Decimal) error {
	defer s.invalidate(ctx)

	sup, err := s.repo.Suppliers.GetByID(ctx, supplierID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("balance update skipped for unknown supplier", zap.String("supplier_id", supplierID))
		return nil
	}
	if err != nil {
		return err
	}
	next := ledger.Floor(ledger.AmountOrZero(sup.Debt).Add(delta))
	_, err = s.repo.Suppliers.Update(ctx, sup.ID, map[string]any{"debt": domain.NewAmount(next)})
	return err
}
