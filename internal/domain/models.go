package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CustomerType string

const (
	CustomerHotel  CustomerType = "hotel"
	CustomerRandom CustomerType = "random"
)

type MeatType string

const (
	MeatChicken        MeatType = "chicken"
	MeatCountryChicken MeatType = "country_chicken"
	MeatMutton         MeatType = "mutton"
	MeatBeef           MeatType = "beef"
	MeatFish           MeatType = "fish"
	MeatEggs           MeatType = "eggs"
)

var MeatTypes = []MeatType{MeatChicken, MeatCountryChicken, MeatMutton, MeatBeef, MeatFish, MeatEggs}

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntitySupplier EntityType = "supplier"
)

type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionReceipt TransactionType = "receipt"
	TransactionExpense TransactionType = "expense"
)

type Customer struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          CustomerType `json:"type"`
	Contact       string       `json:"contact,omitempty"`
	PendingAmount Amount       `json:"pendingAmount"`
	CreatedAt     Date         `json:"createdAt"`
}

func (c Customer) RecordID() string { return c.ID }

func (c *Customer) Normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = CustomerType(normalizeEnum(string(c.Type)))
}

type Supplier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Debt      Amount `json:"debt"`
	CreatedAt Date   `json:"createdAt"`
}

func (s Supplier) RecordID() string { return s.ID }

func (s *Supplier) Normalize() {
	s.ID = strings.TrimSpace(s.ID)
}

// InventoryItem quantities are in kg and may go negative when more is sold
// than was recorded as received.
type InventoryItem struct {
	ID        string   `json:"id"`
	Type      MeatType `json:"type"`
	Quantity  Amount   `json:"quantity"`
	Rate      Amount   `json:"rate"`
	UpdatedAt Date     `json:"updatedAt"`
}

func (i InventoryItem) RecordID() string { return i.ID }

func (i *InventoryItem) Normalize() {
	i.ID = strings.TrimSpace(i.ID)
	i.Type = MeatType(normalizeEnum(string(i.Type)))
}

type OrderItem struct {
	Type     MeatType `json:"type"`
	Quantity Amount   `json:"quantity"`
	Rate     Amount   `json:"rate"`
	Details  string   `json:"details,omitempty"`
}

type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customerId"`
	Items      []OrderItem `json:"items"`
	Total      Amount      `json:"total"`
	Status     OrderStatus `json:"status"`
	Date       Date        `json:"date"`
}

func (o Order) RecordID() string { return o.ID }

func (o *Order) Normalize() {
	o.ID = strings.TrimSpace(o.ID)
	o.CustomerID = strings.TrimSpace(o.CustomerID)
	o.Status = OrderStatus(normalizeEnum(string(o.Status)))
	for i := range o.Items {
		o.Items[i].Type = MeatType(normalizeEnum(string(o.Items[i].Type)))
	}
}

type Transaction struct {
	ID          string          `json:"id"`
	EntityID    string          `json:"entityId"`
	EntityType  EntityType      `json:"entityType"`
	Type        TransactionType `json:"type"`
	Amount      Amount          `json:"amount"`
	Date        Date            `json:"date"`
	Description string          `json:"description,omitempty"`
}

func (t Transaction) RecordID() string { return t.ID }

func (t *Transaction) Normalize() {
	t.ID = strings.TrimSpace(t.ID)
	t.EntityID = strings.TrimSpace(t.EntityID)
	t.EntityType = EntityType(normalizeEnum(string(t.EntityType)))
	t.Type = TransactionType(normalizeEnum(string(t.Type)))
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u UserAccount) RecordID() string { return u.ID }

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (a AuditLog) RecordID() string { return a.ID }

func normalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Requests

type CustomerCreateRequest struct {
	Name    string       `json:"name" validate:"required,max=120"`
	Type    CustomerType `json:"type" validate:"required,oneof=hotel random"`
	Contact string       `json:"contact" validate:"omitempty,max=60"`
}

type CustomerUpdateRequest struct {
	Name    *string       `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Type    *CustomerType `json:"type,omitempty" validate:"omitempty,oneof=hotel random"`
	Contact *string       `json:"contact,omitempty" validate:"omitempty,max=60"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact" validate:"omitempty,max=60"`
}

type SupplierUpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Contact *string `json:"contact,omitempty" validate:"omitempty,max=60"`
}

type StockAddRequest struct {
	Type     MeatType `json:"type" validate:"required,oneof=chicken country_chicken mutton beef fish eggs"`
	Quantity float64  `json:"quantity" validate:"gt=0"`
	Rate     *float64 `json:"rate,omitempty" validate:"omitempty,gte=0"`
}

type RateUpdateRequest struct {
	Rate float64 `json:"rate" validate:"gte=0"`
}

type OrderItemRequest struct {
	Type     MeatType `json:"type" validate:"required,oneof=chicken country_chicken mutton beef fish eggs"`
	Quantity float64  `json:"quantity" validate:"gt=0"`
	Rate     float64  `json:"rate" validate:"gte=0"`
	Details  string   `json:"details" validate:"max=200"`
}

type OrderCreateRequest struct {
	CustomerID string             `json:"customerId" validate:"required"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Status     OrderStatus        `json:"status" validate:"omitempty,oneof=pending paid"`
	Date       *time.Time         `json:"date,omitempty"`
}

type OrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending paid"`
}

type TransactionCreateRequest struct {
	EntityID    string          `json:"entityId" validate:"required"`
	EntityType  EntityType      `json:"entityType" validate:"required,oneof=customer supplier"`
	Type        TransactionType `json:"type" validate:"required,oneof=payment receipt expense"`
	Amount      float64         `json:"amount" validate:"gt=0"`
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description" validate:"max=300"`
}

type TransactionFilter struct {
	EntityID   string
	EntityType EntityType
	From       *time.Time
	To         *time.Time
}

type DateRange struct {
	From *time.Time
	To   *time.Time
}

type InventoryView struct {
	InventoryItem
	StockStatus string `json:"stockStatus"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// Reconciliation output

// BalanceDiscrepancy describes one stored balance that disagrees with the
// ledger. Expected is Calculated floored at zero, the value a correction
// writes, and Difference is Actual minus Expected rather than Actual minus
// Calculated. The two only differ when Calculated is negative.
type BalanceDiscrepancy struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Calculated decimal.Decimal `json:"calculated"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
}

type CollectionCounts struct {
	Customers    int `json:"customers"`
	Suppliers    int `json:"suppliers"`
	Orders       int `json:"orders"`
	Transactions int `json:"transactions"`
}

type BalanceSet struct {
	Calculated map[string]decimal.Decimal `json:"calculated"`
	Actual     map[string]decimal.Decimal `json:"actual"`
}

type BalanceSummary struct {
	Totals                CollectionCounts     `json:"totals"`
	CustomerBalances      BalanceSet           `json:"customerBalances"`
	SupplierBalances      BalanceSet           `json:"supplierBalances"`
	CustomerDiscrepancies []BalanceDiscrepancy `json:"customerDiscrepancies"`
	SupplierDiscrepancies []BalanceDiscrepancy `json:"supplierDiscrepancies"`
}

type BalanceReport struct {
	IsValid  bool           `json:"isValid"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Summary  BalanceSummary `json:"summary"`
}

type BalanceCorrection struct {
	EntityType EntityType      `json:"entityType"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Previous   decimal.Decimal `json:"previous"`
	Corrected  decimal.Decimal `json:"corrected"`
}

type FixResult struct {
	Corrections []BalanceCorrection `json:"corrections"`
	Report      *BalanceReport      `json:"report"`
}

type OrphanRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

type PurgeResult struct {
	Confirmed bool        `json:"confirmed"`
	Orphans   []OrphanRef `json:"orphans"`
	Deleted   int         `json:"deleted"`
}
