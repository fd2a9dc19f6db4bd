package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateLoyaltyAccount OutboxAggregateType = "loyalty_account"
	AggregateBarcode        OutboxAggregateType = "redemption_barcode"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLoyaltyAccount,
	AggregateBarcode,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventLoyaltyPointsEarned   OutboxEventType = "loyalty_points_earned"
	EventLoyaltyPointsRedeemed OutboxEventType = "loyalty_points_redeemed"
	EventLoyaltyPointsRefunded OutboxEventType = "loyalty_points_refunded"
	EventBarcodeIssued         OutboxEventType = "barcode_issued"
	EventBarcodeCancelled      OutboxEventType = "barcode_cancelled"
	EventBarcodeUsed           OutboxEventType = "barcode_used"
	EventBarcodeExpired        OutboxEventType = "barcode_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLoyaltyPointsEarned,
	EventLoyaltyPointsRedeemed,
	EventLoyaltyPointsRefunded,
	EventBarcodeIssued,
	EventBarcodeCancelled,
	EventBarcodeUsed,
	EventBarcodeExpired,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
