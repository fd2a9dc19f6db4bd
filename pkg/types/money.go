package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money renders an amount rounded to two places. Arithmetic stays on
// decimal.Decimal; wrap only at the response boundary.
type Money decimal.Decimal

func NewMoney(d decimal.Decimal) Money {
	return Money(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}

func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}

// MarshalJSON emits the amount as a JSON string such as "35.00".
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid money amount: %w", err)
	}
	*m = Money(d)
	return nil
}
