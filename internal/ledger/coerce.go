package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"meatledger/backend/internal/domain"
)

// Coercion rules for malformed documents. Every read path goes through these
// so that a single bad record never aborts a projection.

// AmountOrZero returns the value of a, or zero when a is missing or malformed.
func AmountOrZero(a domain.Amount) decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// OrderTotal is the stored total of o, zero when missing or non-numeric.
func OrderTotal(o domain.Order) decimal.Decimal {
	return AmountOrZero(o.Total)
}

// TransactionAmount is the stored amount of t, zero when missing or non-numeric.
func TransactionAmount(t domain.Transaction) decimal.Decimal {
	return AmountOrZero(t.Amount)
}

// IsPaid reports whether o is settled. A missing or unknown status counts as
// not paid.
func IsPaid(o domain.Order) bool {
	return o.Status == domain.OrderPaid
}

// InDateRange reports whether d falls in [from, to]. Nil bounds are open.
// Records without a date are excluded from every date-filtered view.
func InDateRange(d domain.Date, from *time.Time, to *time.Time) bool {
	if !d.Valid {
		return false
	}
	if from != nil && d.Time.Before(*from) {
		return false
	}
	if to != nil && d.Time.After(*to) {
		return false
	}
	return true
}

// Floor clamps a balance at zero before it is written back to a record.
func Floor(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// ItemsTotal recomputes Σ quantity×rate over the line items of an order.
func ItemsTotal(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(AmountOrZero(item.Quantity).Mul(AmountOrZero(item.Rate)))
	}
	return total
}

// StockStatus classifies an inventory quantity. Negative stock is a distinct
// state, not an error.
func StockStatus(quantity domain.Amount) string {
	qty := AmountOrZero(quantity)
	switch {
	case qty.IsNegative():
		return "negative"
	case qty.IsZero():
		return "out"
	case qty.LessThanOrEqual(LowStockThreshold):
		return "low"
	default:
		return "ok"
	}
}

var LowStockThreshold = decimal.NewFromInt(5)
