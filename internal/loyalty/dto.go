package loyalty

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
)

const (
	// RedemptionBlock is the smallest redeemable unit of points.
	RedemptionBlock int64 = 1000

	DescriptionRefund   = "refund"
	DescriptionRedeemed = "redeemed for barcode"
	DescriptionOrder    = "order"
)

type EarnInput struct {
	UserID      uuid.UUID
	Points      int64
	Description string
	OrderID     *string
}

type TransactionDTO struct {
	ID          uuid.UUID                    `json:"id"`
	Points      int64                        `json:"points"`
	Type        enums.LoyaltyTransactionType `json:"type"`
	Description string                       `json:"description"`
	OrderID     *string                      `json:"order_id,omitempty"`
	BarcodeID   *uuid.UUID                   `json:"barcode_id,omitempty"`
	CreatedAt   time.Time                    `json:"created_at"`
}

// Entry is the result of a balance mutation.
type Entry struct {
	Transaction TransactionDTO `json:"transaction"`
	Balance     int64          `json:"balance"`
}

type BalanceDTO struct {
	UserID        uuid.UUID `json:"user_id"`
	PointsBalance int64     `json:"points_balance"`
	// RedeemablePoints is the balance rounded down to whole redemption blocks.
	RedeemablePoints int64 `json:"redeemable_points"`
}

// ReconcileResult compares the stored balance with the transaction log.
type ReconcileResult struct {
	UserID           uuid.UUID `json:"user_id"`
	PointsBalance    int64     `json:"points_balance"`
	LedgerSum        int64     `json:"ledger_sum"`
	TransactionCount int64     `json:"transaction_count"`
	Consistent       bool      `json:"consistent"`
}

func toTransactionDTO(t models.LoyaltyTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		Points:      t.Points,
		Type:        t.Type,
		Description: t.Description,
		OrderID:     t.OrderID,
		BarcodeID:   t.BarcodeID,
		CreatedAt:   t.CreatedAt,
	}
}
