package payloads

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyPointsEarnedEvent covers order earn and barcode refunds.
type LoyaltyPointsEarnedEvent struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	UserID        uuid.UUID  `json:"user_id"`
	Points        int64      `json:"points"`
	Balance       int64      `json:"balance"`
	Description   string     `json:"description"`
	OrderID       *string    `json:"order_id,omitempty"`
	BarcodeID     *uuid.UUID `json:"barcode_id,omitempty"`
}

// LoyaltyPointsRedeemedEvent is emitted when points leave the balance.
type LoyaltyPointsRedeemedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Points        int64     `json:"points"`
	Balance       int64     `json:"balance"`
}

// BarcodeLifecycleEvent reports a barcode status transition.
type BarcodeLifecycleEvent struct {
	BarcodeID     uuid.UUID `json:"barcode_id"`
	UserID        uuid.UUID `json:"user_id"`
	Code          string    `json:"code"`
	Status        string    `json:"status"`
	PointsValue   int64     `json:"points_value"`
	MonetaryValue string    `json:"monetary_value"`
	ExpiresAt     time.Time `json:"expires_at"`
	OrderID       *string   `json:"order_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
