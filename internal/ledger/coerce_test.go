package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatledger/backend/internal/domain"
)

func TestOrderTotalCoercesMalformedValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "number", raw: `{"total": 120.5}`, want: "120.5"},
		{name: "numeric string", raw: `{"total": " 99 "}`, want: "99"},
		{name: "missing", raw: `{}`, want: "0"},
		{name: "null", raw: `{"total": null}`, want: "0"},
		{name: "text", raw: `{"total": "five hundred"}`, want: "0"},
		{name: "boolean", raw: `{"total": true}`, want: "0"},
		{name: "object", raw: `{"total": {"value": 1}}`, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o domain.Order
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &o))
			assert.Equal(t, tt.want, OrderTotal(o).String())
		})
	}
}

func TestTransactionAmountCoercesMalformedValues(t *testing.T) {
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "n/a"}`), &tx))
	assert.True(t, TransactionAmount(tx).IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"amount": 300}`), &tx))
	assert.Equal(t, "300", TransactionAmount(tx).String())
}

func TestIsPaidTreatsMissingStatusAsUnpaid(t *testing.T) {
	assert.True(t, IsPaid(domain.Order{Status: domain.OrderPaid}))
	assert.False(t, IsPaid(domain.Order{Status: domain.OrderPending}))
	assert.False(t, IsPaid(domain.Order{}))
	assert.False(t, IsPaid(domain.Order{Status: "settled"}))
}

func TestInDateRangeExcludesMissingDates(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	assert.False(t, InDateRange(domain.Date{}, nil, nil))
	assert.True(t, InDateRange(domain.NewDate(from), &from, &to))
	assert.True(t, InDateRange(domain.NewDate(to), &from, &to))
	assert.False(t, InDateRange(domain.NewDate(from.Add(-time.Second)), &from, &to))
	assert.False(t, InDateRange(domain.NewDate(to.Add(time.Second)), &from, &to))
	assert.True(t, InDateRange(domain.NewDate(from), nil, nil))
}

func TestFloor(t *testing.T) {
	assert.True(t, Floor(decimal.NewFromInt(-200)).IsZero())
	assert.Equal(t, "0", Floor(decimal.Zero).String())
	assert.Equal(t, "700", Floor(decimal.NewFromInt(700)).String())
}

func TestItemsTotal(t *testing.T) {
	items := []domain.OrderItem{
		{Type: domain.MeatChicken, Quantity: domain.AmountFromString("2.5"), Rate: domain.AmountFromString("220")},
		{Type: domain.MeatMutton, Quantity: domain.AmountFromString("1"), Rate: domain.Amount{}},
	}
	assert.Equal(t, "550", ItemsTotal(items).String())
}

func TestStockStatus(t *testing.T) {
	assert.Equal(t, "negative", StockStatus(domain.AmountFromString("-3")))
	assert.Equal(t, "out", StockStatus(domain.AmountFromString("0")))
	assert.Equal(t, "out", StockStatus(domain.Amount{}))
	assert.Equal(t, "low", StockStatus(domain.AmountFromString("5")))
	assert.Equal(t, "ok", StockStatus(domain.AmountFromString("5.01")))
}
