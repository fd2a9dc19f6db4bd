package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/enums"
)

// RedemptionBarcode is a single-use coupon bought with loyalty points.
type RedemptionBarcode struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Code          string              `gorm:"column:code;not null;uniqueIndex"`
	PointsValue   int64               `gorm:"column:points_value;not null"`
	MonetaryValue decimal.Decimal     `gorm:"column:monetary_value;type:numeric(12,2);not null"`
	Status        enums.BarcodeStatus `gorm:"column:status;type:text;not null;default:'active'"`
	OrderID       *string             `gorm:"column:order_id"`
	CreatedAt     time.Time           `gorm:"column:created_at;not null"`
	ExpiresAt     time.Time           `gorm:"column:expires_at;not null"`
	UsedAt        *time.Time          `gorm:"column:used_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	ExpiredAt     *time.Time          `gorm:"column:expired_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOverdue reports whether an active barcode has passed its expiry. A code
// is still valid at exactly ExpiresAt.
func (b RedemptionBarcode) IsOverdue(now time.Time) bool {
	return b.Status == enums.BarcodeStatusActive && !now.Before(b.ExpiresAt)
}
