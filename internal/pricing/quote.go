package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/enums"
)

// Quote is the full price breakdown of a cart. Amounts keep full precision;
// callers round for display.
type Quote struct {
	Subtotal              decimal.Decimal
	ServiceFee            decimal.Decimal
	DeliveryFee           decimal.Decimal
	Discount              decimal.Decimal
	Total                 decimal.Decimal
	MinimumOrder          decimal.Decimal
	MeetsMinimumOrder     bool
	MinimumOrderShortfall decimal.Decimal
	FreeDeliveryRemaining decimal.Decimal
}

// Calculator bundles the three pricing rules.
type Calculator struct {
	Delivery   DeliveryFeeRule
	Minimum    MinimumOrderGate
	ServiceFee ServiceFeePolicy
}

// DefaultCalculator uses the canonical policy with no service fee.
func DefaultCalculator() *Calculator {
	return &Calculator{
		Delivery:   NewDeliveryFeeRule(DefaultDeliveryTiers()),
		Minimum:    NewMinimumOrderGate(DefaultMinimumOrder),
		ServiceFee: FixedServiceFee{Amount: decimal.Zero},
	}
}

func NewCalculator(cfg config.PricingConfig) (*Calculator, error) {
	kind, err := enums.ParseServiceFeeKind(cfg.ServiceFeeKind)
	if err != nil {
		return nil, err
	}
	policy, err := NewServiceFeePolicy(kind, cfg.ServiceFeeValue)
	if err != nil {
		return nil, err
	}
	return &Calculator{
		Delivery:   NewDeliveryFeeRule(cfg.DeliveryTiers),
		Minimum:    NewMinimumOrderGate(cfg.MinimumOrder),
		ServiceFee: policy,
	}, nil
}

// DeliveryFee is zero for an empty cart, otherwise the tier fee.
func (c *Calculator) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return c.Delivery.Fee(subtotal)
}

// Total is subtotal + service fee + delivery fee - discount, floored at zero.
func (c *Calculator) Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.
		Add(c.ServiceFee.Fee(subtotal)).
		Add(c.DeliveryFee(subtotal)).
		Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func (c *Calculator) Quote(subtotal, discount decimal.Decimal) Quote {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return Quote{
		Subtotal:              subtotal,
		ServiceFee:            c.ServiceFee.Fee(subtotal),
		DeliveryFee:           c.DeliveryFee(subtotal),
		Discount:              discount,
		Total:                 c.Total(subtotal, discount),
		MinimumOrder:          c.Minimum.Minimum,
		MeetsMinimumOrder:     c.Minimum.Meets(subtotal),
		MinimumOrderShortfall: c.Minimum.Shortfall(subtotal),
		FreeDeliveryRemaining: c.Delivery.FreeDeliveryRemaining(subtotal),
	}
}
