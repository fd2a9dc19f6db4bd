package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
)

// DefaultMinimumOrder is the enforced checkout minimum.
var DefaultMinimumOrder = decimal.NewFromInt(200)

type MinimumOrderGate struct {
	Minimum decimal.Decimal
}

func NewMinimumOrderGate(minimum decimal.Decimal) MinimumOrderGate {
	return MinimumOrderGate{Minimum: minimum}
}

func (g MinimumOrderGate) Meets(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(g.Minimum)
}

// Shortfall returns the amount still missing, never negative.
func (g MinimumOrderGate) Shortfall(subtotal decimal.Decimal) decimal.Decimal {
	if g.Meets(subtotal) {
		return decimal.Zero
	}
	return g.Minimum.Sub(subtotal)
}

// MinimumOrderViolation is returned in error details when the gate blocks checkout.
type MinimumOrderViolation struct {
	Minimum   string `json:"minimum_order"`
	Subtotal  string `json:"subtotal"`
	Shortfall string `json:"shortfall"`
}

// Enforce returns a validation error when subtotal is below the minimum.
func (g MinimumOrderGate) Enforce(subtotal decimal.Decimal) error {
	if g.Meets(subtotal) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("minimum order is %s", g.Minimum.StringFixed(2))).WithDetails(MinimumOrderViolation{
		Minimum:   g.Minimum.StringFixed(2),
		Subtotal:  subtotal.StringFixed(2),
		Shortfall: g.Shortfall(subtotal).StringFixed(2),
	})
}
