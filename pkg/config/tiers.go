package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryTier charges Fee when the subtotal is at least MinSubtotal.
type DeliveryTier struct {
	MinSubtotal decimal.Decimal
	Fee         decimal.Decimal
}

// DeliveryTiers decodes "600:0,100:15,0:25" and keeps tiers sorted by
// descending threshold.
type DeliveryTiers []DeliveryTier

func (t *DeliveryTiers) Decode(value string) error {
	parsed, err := ParseDeliveryTiers(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseDeliveryTiers(value string) (DeliveryTiers, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("delivery tiers empty")
	}

	var tiers DeliveryTiers
	seen := map[string]struct{}{}
	for _, part := range strings.Split(value, ",") {
		threshold, fee, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("delivery tier %q must be threshold:fee", part)
		}
		min, err := decimal.NewFromString(strings.TrimSpace(threshold))
		if err != nil {
			return nil, fmt.Errorf("delivery tier threshold %q: %w", threshold, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(fee))
		if err != nil {
			return nil, fmt.Errorf("delivery tier fee %q: %w", fee, err)
		}
		if min.IsNegative() || amount.IsNegative() {
			return nil, fmt.Errorf("delivery tier %q must not be negative", part)
		}
		if _, dup := seen[min.String()]; dup {
			return nil, fmt.Errorf("delivery tier threshold %s declared twice", min)
		}
		seen[min.String()] = struct{}{}
		tiers = append(tiers, DeliveryTier{MinSubtotal: min, Fee: amount})
	}

	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinSubtotal.GreaterThan(tiers[j].MinSubtotal)
	})
	if !tiers[len(tiers)-1].MinSubtotal.IsZero() {
		return nil, fmt.Errorf("delivery tiers must include a 0 threshold")
	}
	return tiers, nil
}
