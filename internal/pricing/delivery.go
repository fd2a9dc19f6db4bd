package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/config"
)

// DeliveryFeeRule maps a subtotal onto the fee of the highest tier it
// reaches. Tiers are sorted by descending threshold.
type DeliveryFeeRule struct {
	tiers config.DeliveryTiers
}

// DefaultDeliveryTiers is the canonical policy: free from 600, 15 from 100,
// 25 below that.
func DefaultDeliveryTiers() config.DeliveryTiers {
	return config.DeliveryTiers{
		{MinSubtotal: decimal.NewFromInt(600), Fee: decimal.Zero},
		{MinSubtotal: decimal.NewFromInt(100), Fee: decimal.NewFromInt(15)},
		{MinSubtotal: decimal.Zero, Fee: decimal.NewFromInt(25)},
	}
}

func NewDeliveryFeeRule(tiers config.DeliveryTiers) DeliveryFeeRule {
	if len(tiers) == 0 {
		tiers = DefaultDeliveryTiers()
	}
	return DeliveryFeeRule{tiers: tiers}
}

func (r DeliveryFeeRule) Fee(subtotal decimal.Decimal) decimal.Decimal {
	for _, tier := range r.tiers {
		if subtotal.GreaterThanOrEqual(tier.MinSubtotal) {
			return tier.Fee
		}
	}
	// below every threshold, charge the lowest tier
	return r.tiers[len(r.tiers)-1].Fee
}

// FreeDeliveryRemaining is how much more the customer must add to reach the
// lowest free tier. Zero when already free or when no tier is free.
func (r DeliveryFeeRule) FreeDeliveryRemaining(subtotal decimal.Decimal) decimal.Decimal {
	var threshold *decimal.Decimal
	for i := range r.tiers {
		if r.tiers[i].Fee.IsZero() {
			threshold = &r.tiers[i].MinSubtotal
		}
	}
	if threshold == nil || subtotal.GreaterThanOrEqual(*threshold) {
		return decimal.Zero
	}
	return threshold.Sub(subtotal)
}
