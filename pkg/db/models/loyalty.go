package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/pkg/enums"
)

// LoyaltyAccount holds the only mutable loyalty field, the balance.
type LoyaltyAccount struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	PointsBalance int64     `gorm:"column:points_balance;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LoyaltyTransaction is an append-only ledger row. Points are signed.
type LoyaltyTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID                    `gorm:"column:user_id;type:uuid;not null"`
	Points      int64                        `gorm:"column:points;not null"`
	Type        enums.LoyaltyTransactionType `gorm:"column:type;type:text;not null"`
	Description string                       `gorm:"column:description;not null"`
	OrderID     *string                      `gorm:"column:order_id"`
	BarcodeID   *uuid.UUID                   `gorm:"column:barcode_id;type:uuid"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
