package barcodes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/freshbasket/storefront-backend/pkg/types"
)

// ValuePerBlock is the currency value of each 1000-point block.
var ValuePerBlock = decimal.NewFromInt(35)

type IssueInput struct {
	UserID uuid.UUID
	Points int64
}

type RedeemInput struct {
	Code    string
	OrderID *string
}

type BarcodeDTO struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	PointsValue   int64               `json:"points_value"`
	MonetaryValue types.Money         `json:"monetary_value"`
	Status        enums.BarcodeStatus `json:"status"`
	OrderID       *string             `json:"order_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	ExpiresAt     time.Time           `json:"expires_at"`
	UsedAt        *time.Time          `json:"used_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	ExpiredAt     *time.Time          `json:"expired_at,omitempty"`
}

// IssueResult pairs the new barcode with the balance left after redemption.
type IssueResult struct {
	Barcode          BarcodeDTO `json:"barcode"`
	RemainingBalance int64      `json:"remaining_balance"`
}

type CancelResult struct {
	Barcode BarcodeDTO `json:"barcode"`
	Balance int64      `json:"balance"`
}

// MonetaryValueFor converts redeemed points into the barcode's face value.
func MonetaryValueFor(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Div(decimal.NewFromInt(1000)).Mul(ValuePerBlock)
}

func ToDTO(b models.RedemptionBarcode) BarcodeDTO {
	return BarcodeDTO{
		ID:            b.ID,
		Code:          b.Code,
		PointsValue:   b.PointsValue,
		MonetaryValue: types.NewMoney(b.MonetaryValue),
		Status:        b.Status,
		OrderID:       b.OrderID,
		CreatedAt:     b.CreatedAt,
		ExpiresAt:     b.ExpiresAt,
		UsedAt:        b.UsedAt,
		CancelledAt:   b.CancelledAt,
		ExpiredAt:     b.ExpiredAt,
	}
}
