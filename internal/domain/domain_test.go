package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountDecodesLooseValues(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		value string
	}{
		{raw: `500`, valid: true, value: "500"},
		{raw: `"1250.5"`, valid: true, value: "1250.5"},
		{raw: `" 42 "`, valid: true, value: "42"},
		{raw: `null`, valid: false},
		{raw: `"abc"`, valid: false},
		{raw: `true`, valid: false},
		{raw: `{"v":1}`, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &a))
			assert.Equal(t, tt.valid, a.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.value).Equal(a.Value), "got %s", a.Value)
			}
		})
	}
}

func TestAmountMarshal(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}{A: AmountFromFloat(12.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5,"b":null}`, string(raw))
	assert.Equal(t, "invalid", AmountFromString("x").String())
}

func TestDateDecodesKnownShapes(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := map[string]string{
		"rfc3339":      `"2024-03-01T00:00:00Z"`,
		"date only":    `"2024-03-01"`,
		"millis":       `1709251200000`,
		"firestore":    `{"seconds": 1709251200, "nanoseconds": 0}`,
		"admin export": `{"_seconds": 1709251200, "_nanoseconds": 0}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(raw), &d))
			require.True(t, d.Valid)
			assert.True(t, want.Equal(d.Time), "got %s", d.Time)
		})
	}

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"last tuesday"`), &d))
	assert.False(t, d.Valid)
}

func TestNormalizeTrimsAndLowercasesEnums(t *testing.T) {
	tx := Transaction{ID: " t1 ", EntityID: " s1", EntityType: " Supplier ", Type: "EXPENSE"}
	tx.Normalize()
	assert.Equal(t, Transaction{ID: "t1", EntityID: "s1", EntityType: EntitySupplier, Type: TransactionExpense}, tx)

	order := Order{Status: "Paid", Items: []OrderItem{{Type: " Chicken"}}}
	order.Normalize()
	assert.Equal(t, OrderPaid, order.Status)
	assert.Equal(t, MeatChicken, order.Items[0].Type)
}
