package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// ServiceFeePolicy computes the service fee charged on a subtotal.
type ServiceFeePolicy interface {
	Kind() enums.ServiceFeeKind
	Fee(subtotal decimal.Decimal) decimal.Decimal
}

// FixedServiceFee charges Amount on every non-empty cart.
type FixedServiceFee struct {
	Amount decimal.Decimal
}

func (f FixedServiceFee) Kind() enums.ServiceFeeKind { return enums.ServiceFeeFixed }

func (f FixedServiceFee) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return f.Amount
}

// PercentageServiceFee charges Percent of the subtotal, e.g. 2.5 for 2.5%.
type PercentageServiceFee struct {
	Percent decimal.Decimal
}

func (p PercentageServiceFee) Kind() enums.ServiceFeeKind { return enums.ServiceFeePercentage }

func (p PercentageServiceFee) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(p.Percent).Div(hundred)
}

func NewServiceFeePolicy(kind enums.ServiceFeeKind, value decimal.Decimal) (ServiceFeePolicy, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("service fee must be >= 0")
	}
	switch kind {
	case enums.ServiceFeeFixed:
		return FixedServiceFee{Amount: value}, nil
	case enums.ServiceFeePercentage:
		return PercentageServiceFee{Percent: value}, nil
	default:
		return nil, fmt.Errorf("unknown service fee kind %q", kind)
	}
}
