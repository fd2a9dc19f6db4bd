package enums

import "fmt"

// BarcodeStatus is the lifecycle state of a redemption barcode. Every state
// other than active is terminal.
type BarcodeStatus string

const (
	BarcodeStatusActive    BarcodeStatus = "active"
	BarcodeStatusUsed      BarcodeStatus = "used"
	BarcodeStatusCancelled BarcodeStatus = "cancelled"
	BarcodeStatusExpired   BarcodeStatus = "expired"
)

var validBarcodeStatuses = []BarcodeStatus{
	BarcodeStatusActive,
	BarcodeStatusUsed,
	BarcodeStatusCancelled,
	BarcodeStatusExpired,
}

func (s BarcodeStatus) String() string {
	return string(s)
}

func (s BarcodeStatus) IsValid() bool {
	for _, candidate := range validBarcodeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s BarcodeStatus) IsTerminal() bool {
	return s.IsValid() && s != BarcodeStatusActive
}

func ParseBarcodeStatus(value string) (BarcodeStatus, error) {
	for _, candidate := range validBarcodeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid barcode status %q", value)
}
