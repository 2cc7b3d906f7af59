package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"meatledger/backend/internal/audit"
	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/ledger"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/xid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("admin role required")
)

// ReportInvalidator is told whenever a write may change a reconciliation
// report.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	repo        *store.Repository
	validate    *validator.Validate
	audit       *audit.Recorder
	invalidator ReportInvalidator
	log         *zap.Logger
	now         func() time.Time
}

func New(repo *store.Repository, recorder *audit.Recorder, invalidator ReportInvalidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.NewRecorder(repo.AuditLogs, log)
	}
	return &Service{
		repo:        repo,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		audit:       recorder,
		invalidator: invalidator,
		log:         log.Named("service"),
		now:         time.Now,
	}
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.Customers.GetAll(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, err := s.repo.Customers.GetByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Contact = strings.TrimSpace(req.Contact)
	req.Type = domain.CustomerType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:            xid.New("cus"),
		Name:          req.Name,
		Type:          req.Type,
		Contact:       req.Contact,
		PendingAmount: domain.NewAmount(decimal.Zero),
		CreatedAt:     domain.NewDate(s.now()),
	}
	saved, err := s.repo.Customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.audit.Record(ctx, "customer.create", "customer", saved.ID, fmt.Sprintf("name=%s,type=%s", saved.Name, saved.Type))
	return *saved, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	patch := map[string]any{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		patch["type"] = strings.ToLower(strings.TrimSpace(string(*req.Type)))
	}
	if req.Contact != nil {
		patch["contact"] = strings.TrimSpace(*req.Contact)
	}
	if len(patch) == 0 {
		return s.GetCustomer(ctx, id)
	}

	updated, err := s.repo.Customers.Update(ctx, id, patch)
	if err != nil {
		return domain.Customer{}, err
	}
	s.audit.Record(ctx, "customer.update", "customer", updated.ID, patchKeys(patch))
	return *updated, nil
}

// DeleteCustomer removes the customer only. Orders and receipts that pointed
// at it stay behind and show up as orphans in the next reconciliation.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	removed, err := s.repo.Customers.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return store.ErrNotFound
	}
	s.audit.Record(ctx, "customer.delete", "customer", id, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.Suppliers.GetAll(ctx)
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	sup, err := s.repo.Suppliers.GetByID(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *sup, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Contact = strings.TrimSpace(req.Contact)
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	supplier := domain.Supplier{
		ID:        xid.New("sup"),
		Name:      req.Name,
		Contact:   req.Contact,
		Debt:      domain.NewAmount(decimal.Zero),
		CreatedAt: domain.NewDate(s.now()),
	}
	saved, err := s.repo.Suppliers.Create(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.audit.Record(ctx, "supplier.create", "supplier", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	patch := map[string]any{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Contact != nil {
		patch["contact"] = strings.TrimSpace(*req.Contact)
	}
	if len(patch) == 0 {
		return s.GetSupplier(ctx, id)
	}

	updated, err := s.repo.Suppliers.Update(ctx, id, patch)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.audit.Record(ctx, "supplier.update", "supplier", updated.ID, patchKeys(patch))
	return *updated, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	removed, err := s.repo.Suppliers.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return store.ErrNotFound
	}
	s.audit.Record(ctx, "supplier.delete", "supplier", id, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryView, error) {
	items, err := s.repo.Inventory.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.InventoryView, 0, len(items))
	for _, item := range items {
		views = append(views, domain.InventoryView{
			InventoryItem: item,
			StockStatus:   ledger.StockStatus(item.Quantity),
		})
	}
	return views, nil
}

// AddStock records received meat. The item for the meat type is created on
// first use.
func (s *Service) AddStock(ctx context.Context, req domain.StockAddRequest) (domain.InventoryView, error) {
	req.Type = domain.MeatType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if err := s.check(req); err != nil {
		return domain.InventoryView{}, err
	}
	qty := decimal.NewFromFloat(req.Quantity)

	item, err := s.findInventory(ctx, req.Type)
	if errors.Is(err, store.ErrNotFound) {
		rate := decimal.Zero
		if req.Rate != nil {
			rate = decimal.NewFromFloat(*req.Rate)
		}
		created, err := s.repo.Inventory.Create(ctx, domain.InventoryItem{
			ID:        "inv-" + string(req.Type),
			Type:      req.Type,
			Quantity:  domain.NewAmount(qty),
			Rate:      domain.NewAmount(rate),
			UpdatedAt: domain.NewDate(s.now()),
		})
		if err != nil {
			return domain.InventoryView{}, err
		}
		s.audit.Record(ctx, "inventory.add_stock", "inventory", created.ID, fmt.Sprintf("qty=%s", qty))
		return inventoryView(*created), nil
	}
	if err != nil {
		return domain.InventoryView{}, err
	}

	patch := map[string]any{
		"quantity":  domain.NewAmount(ledger.AmountOrZero(item.Quantity).Add(qty)),
		"updatedAt": domain.NewDate(s.now()),
	}
	if req.Rate != nil {
		patch["rate"] = domain.NewAmount(decimal.NewFromFloat(*req.Rate))
	}
	updated, err := s.repo.Inventory.Update(ctx, item.ID, patch)
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.audit.Record(ctx, "inventory.add_stock", "inventory", updated.ID, fmt.Sprintf("qty=%s", qty))
	return inventoryView(*updated), nil
}

func (s *Service) SetRate(ctx context.Context, meat domain.MeatType, req domain.RateUpdateRequest) (domain.InventoryView, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.InventoryView{}, err
	}
	if err := s.check(req); err != nil {
		return domain.InventoryView{}, err
	}

	item, err := s.findInventory(ctx, domain.MeatType(strings.ToLower(strings.TrimSpace(string(meat)))))
	if err != nil {
		return domain.InventoryView{}, err
	}
	updated, err := s.repo.Inventory.Update(ctx, item.ID, map[string]any{
		"rate":      domain.NewAmount(decimal.NewFromFloat(req.Rate)),
		"updatedAt": domain.NewDate(s.now()),
	})
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.audit.Record(ctx, "inventory.set_rate", "inventory", updated.ID, fmt.Sprintf("rate=%s", updated.Rate))
	return inventoryView(*updated), nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.audit.List(ctx, limit)
}

func (s *Service) findInventory(ctx context.Context, meat domain.MeatType) (*domain.InventoryItem, error) {
	items, err := s.repo.Inventory.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Type == meat {
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := audit.ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

func inventoryView(item domain.InventoryItem) domain.InventoryView {
	return domain.InventoryView{InventoryItem: item, StockStatus: ledger.StockStatus(item.Quantity)}
}

func patchKeys(patch map[string]any) string {
	keys := make([]string, 0, len(patch))
	for _, key := range []string{"name", "type", "contact"} {
		if _, ok := patch[key]; ok {
			keys = append(keys, key)
		}
	}
	return "fields=" + strings.Join(keys, ",")
}
