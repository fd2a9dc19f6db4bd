package enums

import (
	"fmt"
	"strings"
)

// ServiceFeeKind selects how the cart service fee is derived.
type ServiceFeeKind string

const (
	ServiceFeeFixed      ServiceFeeKind = "fixed"
	ServiceFeePercentage ServiceFeeKind = "percentage"
)

func ParseServiceFeeKind(value string) (ServiceFeeKind, error) {
	switch ServiceFeeKind(strings.ToLower(strings.TrimSpace(value))) {
	case ServiceFeeFixed:
		return ServiceFeeFixed, nil
	case ServiceFeePercentage:
		return ServiceFeePercentage, nil
	}
	return "", fmt.Errorf("invalid service fee kind %q", value)
}
