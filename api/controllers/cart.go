package controllers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/api/responses"
	"github.com/freshbasket/storefront-backend/api/validators"
	cartsvc "github.com/freshbasket/storefront-backend/internal/cart"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

// CartFetch returns the caller's saved cart with its current quote.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type putCartItemRequest struct {
	Quantity               *int    `json:"quantity" validate:"omitempty,min=0,max=99"`
	SubstitutionPreference *string `json:"substitution_preference"`
}

// CartPutItem adds one unit when the body carries no quantity and sets the
// absolute quantity otherwise. An empty body is allowed.
func CartPutItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload putCartItemRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := cartsvc.PutItemInput{Quantity: payload.Quantity}
		if payload.SubstitutionPreference != nil {
			pref, err := enums.ParseSubstitutionPreference(*payload.SubstitutionPreference)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid substitution preference"))
				return
			}
			input.SubstitutionPreference = &pref
		}

		view, err := svc.PutItem(r.Context(), userID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type quoteRequest struct {
	Items       []quoteItemRequest `json:"items" validate:"dive"`
	BarcodeCode string             `json:"barcode_code" validate:"omitempty,max=32"`
}

type quoteItemRequest struct {
	ProductID              uuid.UUID `json:"product_id" validate:"required"`
	Quantity               int       `json:"quantity" validate:"required,min=1,max=99"`
	SubstitutionPreference *string   `json:"substitution_preference"`
}

func (q quoteRequest) toInput() (cartsvc.QuoteInput, error) {
	items := make([]cartsvc.QuoteItemInput, len(q.Items))
	for i, item := range q.Items {
		items[i] = cartsvc.QuoteItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.SubstitutionPreference != nil {
			pref, err := enums.ParseSubstitutionPreference(*item.SubstitutionPreference)
			if err != nil {
				return cartsvc.QuoteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid substitution preference")
			}
			items[i].SubstitutionPreference = &pref
		}
	}
	return cartsvc.QuoteInput{Items: items, BarcodeCode: q.BarcodeCode}, nil
}

// CartQuote prices a submitted item list at current catalog prices without
// saving it. A barcode code previews the discount without consuming it.
func CartQuote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Quote(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return validators.DecodeJSONBody(r, dest)
}
