package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/api/responses"
	"github.com/freshbasket/storefront-backend/api/validators"
	"github.com/freshbasket/storefront-backend/internal/barcodes"
	"github.com/freshbasket/storefront-backend/internal/loyalty"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

type adminEarnRequest struct {
	UserID      uuid.UUID       `json:"user_id" validate:"required"`
	OrderID     string          `json:"order_id" validate:"required,max=64"`
	AmountSpent decimal.Decimal `json:"amount_spent"`
}

// AdminLoyaltyEarn is the order-completion hook: one point per whole unit of
// currency spent, at most once per order.
func AdminLoyaltyEarn(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}
		var payload adminEarnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UserID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id is required"))
			return
		}

		entry, err := svc.EarnForOrder(r.Context(), payload.UserID, payload.AmountSpent, payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type adminRedeemRequest struct {
	Code    string  `json:"code" validate:"required,max=32"`
	OrderID *string `json:"order_id" validate:"omitempty,max=64"`
}

// AdminBarcodeRedeem consumes a barcode at checkout for the order service.
func AdminBarcodeRedeem(svc barcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "barcode service unavailable"))
			return
		}
		var payload adminRedeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		barcode, err := svc.RedeemAtCheckout(r.Context(), barcodes.RedeemInput{Code: payload.Code, OrderID: payload.OrderID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, barcode)
	}
}

func AdminLoyaltyReconcile(svc loyalty.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Reconcile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
