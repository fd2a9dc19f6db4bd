package catalog

import (
	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/pagination"
	"github.com/freshbasket/storefront-backend/pkg/types"
)

// ProductFilters are the browse knobs exposed on GET /products.
type ProductFilters struct {
	CategoryID  *uuid.UUID
	BrandID     *uuid.UUID
	BranchID    *uuid.UUID
	Query       string
	InStockOnly bool
}

type ListProductsInput struct {
	Filters    ProductFilters
	Pagination pagination.Params
}

type BranchDTO struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Phone   *string   `json:"phone,omitempty"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type BrandDTO struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	LogoURL *string   `json:"logo_url,omitempty"`
}

type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Price       types.Money  `json:"price"`
	SalePrice   *types.Money `json:"sale_price,omitempty"`
	Weight      *string      `json:"weight,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty"`
	InStock     bool         `json:"in_stock"`
	CategoryID  *uuid.UUID   `json:"category_id,omitempty"`
	BrandID     *uuid.UUID   `json:"brand_id,omitempty"`
}

func toBranchDTO(b models.Branch) BranchDTO {
	return BranchDTO{ID: b.ID, Name: b.Name, Address: b.Address, Phone: b.Phone}
}

func toProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       types.NewMoney(p.Price),
		Weight:      p.Weight,
		ImageURL:    p.ImageURL,
		InStock:     p.InStock,
		CategoryID:  p.CategoryID,
		BrandID:     p.BrandID,
	}
	if effective := p.EffectivePrice(); !effective.Equal(p.Price) {
		sale := types.NewMoney(effective)
		dto.SalePrice = &sale
	}
	return dto
}
