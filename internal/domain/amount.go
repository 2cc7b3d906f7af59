package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal value read from a loosely typed document. Anything that
// is not a JSON number or a numeric string decodes to an invalid Amount
// instead of failing the whole document.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

func NewAmount(value decimal.Decimal) Amount {
	return Amount{Value: value, Valid: true}
}

func AmountFromFloat(value float64) Amount {
	return NewAmount(decimal.NewFromFloat(value))
}

func AmountFromString(value string) Amount {
	var a Amount
	a.parse(value)
	return a
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		a.parse(raw)
		return nil
	}
	a.parse(string(trimmed))
	return nil
}

func (a *Amount) parse(raw string) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return
	}
	a.Value = value
	a.Valid = true
}

func (a Amount) String() string {
	if !a.Valid {
		return "invalid"
	}
	return a.Value.String()
}
