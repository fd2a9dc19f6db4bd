package enums

import "fmt"

// SubstitutionPreference tells the picker what to do when an item is out of stock.
type SubstitutionPreference string

const (
	SubstitutionCallMe         SubstitutionPreference = "call_me"
	SubstitutionSimilarProduct SubstitutionPreference = "similar_product"
	SubstitutionCancelItem     SubstitutionPreference = "cancel_item"
)

// DefaultSubstitutionPreference applies to newly added cart items.
const DefaultSubstitutionPreference = SubstitutionCallMe

var validSubstitutionPreferences = []SubstitutionPreference{
	SubstitutionCallMe,
	SubstitutionSimilarProduct,
	SubstitutionCancelItem,
}

func (s SubstitutionPreference) String() string {
	return string(s)
}

func (s SubstitutionPreference) IsValid() bool {
	for _, candidate := range validSubstitutionPreferences {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSubstitutionPreference(value string) (SubstitutionPreference, error) {
	for _, candidate := range validSubstitutionPreferences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid substitution preference %q", value)
}
