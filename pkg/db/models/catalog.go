package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Branch struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address;not null"`
	Phone     *string   `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Brand struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	LogoURL   *string   `gorm:"column:logo_url"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Product is read-only here; the admin back-office owns writes.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice   *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Weight      *string          `gorm:"column:weight"`
	ImageURL    *string          `gorm:"column:image_url"`
	InStock     bool             `gorm:"column:in_stock;not null;default:true"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	BrandID     *uuid.UUID       `gorm:"column:brand_id;type:uuid"`
	BranchID    *uuid.UUID       `gorm:"column:branch_id;type:uuid"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the sale price when one is set, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.GreaterThan(decimal.Zero) && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}
