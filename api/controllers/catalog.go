package controllers

import (
	"net/http"

	"github.com/freshbasket/storefront-backend/api/responses"
	"github.com/freshbasket/storefront-backend/api/validators"
	"github.com/freshbasket/storefront-backend/internal/catalog"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

const maxSearchRunes = 100

// CatalogBranches never fails; the service degrades to an empty list.
func CatalogBranches(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.ListBranches(r.Context()))
	}
}

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		list, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CatalogBrands(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		list, err := svc.ListBrands(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CatalogProducts lists products with category/brand/branch/q filters.
func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		params, err := paginationParams(r, 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters catalog.ProductFilters
		if filters.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.BrandID, err = validators.ParseQueryUUID(r, "brand_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.BranchID, err = validators.ParseQueryUUID(r, "branch_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Query = validators.QuerySearchTerm(r, "q", maxSearchRunes)
		if filters.InStockOnly, err = validators.ParseQueryBool(r, "in_stock"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListProducts(r.Context(), catalog.ListProductsInput{Filters: filters, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
