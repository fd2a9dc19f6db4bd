package cart

import (
	"github.com/google/uuid"

	"github.com/freshbasket/storefront-backend/internal/pricing"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/freshbasket/storefront-backend/pkg/types"
)

// MaxItemQuantity bounds a single line.
const MaxItemQuantity = 99

// PutItemInput drives PUT /cart/items/{productId}. A nil Quantity adds one
// unit; otherwise Quantity is absolute and zero removes the line.
type PutItemInput struct {
	Quantity               *int
	SubstitutionPreference *enums.SubstitutionPreference
}

type QuoteItemInput struct {
	ProductID              uuid.UUID
	Quantity               int
	SubstitutionPreference *enums.SubstitutionPreference
}

// QuoteInput prices a submitted item list without touching the saved cart.
type QuoteInput struct {
	Items       []QuoteItemInput
	BarcodeCode string
}

type ItemView struct {
	ProductID              uuid.UUID                    `json:"product_id"`
	Name                   string                       `json:"name"`
	UnitPrice              types.Money                  `json:"unit_price"`
	Weight                 *string                      `json:"weight,omitempty"`
	Quantity               int                          `json:"quantity"`
	SubstitutionPreference enums.SubstitutionPreference `json:"substitution_preference"`
	LineTotal              types.Money                  `json:"line_total"`
}

type QuoteView struct {
	Subtotal              types.Money `json:"subtotal"`
	ServiceFee            types.Money `json:"service_fee"`
	DeliveryFee           types.Money `json:"delivery_fee"`
	Discount              types.Money `json:"discount"`
	Total                 types.Money `json:"total"`
	MinimumOrder          types.Money `json:"minimum_order"`
	MeetsMinimumOrder     bool        `json:"meets_minimum_order"`
	MinimumOrderShortfall types.Money `json:"minimum_order_shortfall"`
	FreeDeliveryRemaining types.Money `json:"free_delivery_remaining"`
}

// View is the cart as returned to clients. CheckoutAllowed is the server
// side minimum order decision; clients only preview it.
type View struct {
	Items           []ItemView `json:"items"`
	ItemCount       int        `json:"item_count"`
	Quote           QuoteView  `json:"quote"`
	CheckoutAllowed bool       `json:"checkout_allowed"`
	AppliedBarcode  *string    `json:"applied_barcode,omitempty"`
}

func newQuoteView(q pricing.Quote) QuoteView {
	return QuoteView{
		Subtotal:              types.NewMoney(q.Subtotal),
		ServiceFee:            types.NewMoney(q.ServiceFee),
		DeliveryFee:           types.NewMoney(q.DeliveryFee),
		Discount:              types.NewMoney(q.Discount),
		Total:                 types.NewMoney(q.Total),
		MinimumOrder:          types.NewMoney(q.MinimumOrder),
		MeetsMinimumOrder:     q.MeetsMinimumOrder,
		MinimumOrderShortfall: types.NewMoney(q.MinimumOrderShortfall),
		FreeDeliveryRemaining: types.NewMoney(q.FreeDeliveryRemaining),
	}
}

// NewView renders a store.
func NewView(store *Store) *View {
	items := store.Items()
	view := &View{Items: make([]ItemView, 0, len(items))}
	for _, item := range items {
		view.Items = append(view.Items, ItemView{
			ProductID:              item.ProductID,
			Name:                   item.Name,
			UnitPrice:              types.NewMoney(item.UnitPrice),
			Weight:                 item.Weight,
			Quantity:               item.Quantity,
			SubstitutionPreference: item.SubstitutionPreference,
			LineTotal:              types.NewMoney(item.LineTotal()),
		})
		view.ItemCount += item.Quantity
	}
	quote := store.Quote()
	view.Quote = newQuoteView(quote)
	view.CheckoutAllowed = len(items) > 0 && quote.MeetsMinimumOrder
	return view
}
