package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/pkg/enums"
)

// Cart is the saved cart for a single user.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BranchID  *uuid.UUID `gorm:"column:branch_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Items     []CartItem `gorm:"foreignKey:CartID;references:ID"`
}

// CartItem snapshots the product price at the time it was added. Position
// preserves insertion order.
type CartItem struct {
	ID                     uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	CartID                 uuid.UUID                    `gorm:"column:cart_id;type:uuid;not null"`
	ProductID              uuid.UUID                    `gorm:"column:product_id;type:uuid;not null"`
	Name                   string                       `gorm:"column:name;not null"`
	UnitPrice              decimal.Decimal              `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Weight                 *string                      `gorm:"column:weight"`
	Quantity               int                          `gorm:"column:quantity;not null"`
	SubstitutionPreference enums.SubstitutionPreference `gorm:"column:substitution_preference;type:text;not null;default:'call_me'"`
	Position               int                          `gorm:"column:position;not null"`
	CreatedAt              time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}
