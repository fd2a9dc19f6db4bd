package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/pagination"
)

type repository interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	ListProducts(ctx context.Context, filters ProductFilters, cursor *pagination.Cursor, limit int) ([]models.Product, error)
}

// Service exposes the read-only catalog.
type Service interface {
	ListBranches(ctx context.Context) []BranchDTO
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListBrands(ctx context.Context) ([]BrandDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// ListBranches degrades to an empty list on failure; the branch picker is
// not critical.
func (s *service) ListBranches(ctx context.Context) []BranchDTO {
	rows, err := s.repo.ListBranches(ctx)
	if err != nil {
		s.logg.Error(ctx, "catalog.branches_unavailable", err)
		return []BranchDTO{}
	}
	out := make([]BranchDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBranchDTO(row))
	}
	return out
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryDTO{ID: row.ID, Name: row.Name, Slug: row.Slug})
	}
	return out, nil
}

func (s *service) ListBrands(ctx context.Context) ([]BrandDTO, error) {
	rows, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list brands")
	}
	out := make([]BrandDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, BrandDTO{ID: row.ID, Name: row.Name, LogoURL: row.LogoURL})
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	rows, err := s.repo.ListProducts(ctx, input.Filters, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.Trim(rows, limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	items := make([]ProductDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, toProductDTO(row))
	}
	return &pagination.Page[ProductDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := s.repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return products, nil
}
