package enums

import "fmt"

// LoyaltyTransactionType maps to the loyalty_transactions.type column.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionEarned   LoyaltyTransactionType = "earned"
	LoyaltyTransactionRedeemed LoyaltyTransactionType = "redeemed"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionEarned,
	LoyaltyTransactionRedeemed,
}

// IsValid reports whether the value matches a known transaction type.
func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
