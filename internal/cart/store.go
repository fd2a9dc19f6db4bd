package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshbasket/storefront-backend/internal/pricing"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
)

// Item is one cart line. Quantity is always at least 1.
type Item struct {
	ProductID              uuid.UUID
	Name                   string
	UnitPrice              decimal.Decimal
	Weight                 *string
	Quantity               int
	SubstitutionPreference enums.SubstitutionPreference
}

// LineTotal is UnitPrice x Quantity at full precision.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Store holds the items of one cart and derives every total from them.
// Nothing is cached, so totals cannot drift from the items. A Store is not
// safe for concurrent use; build one per request.
type Store struct {
	items    []Item
	discount decimal.Decimal
	pricing  *pricing.Calculator
}

// NewStore returns an empty store priced by calc, or by the default policy
// when calc is nil.
func NewStore(calc *pricing.Calculator) *Store {
	if calc == nil {
		calc = pricing.DefaultCalculator()
	}
	return &Store{pricing: calc, discount: decimal.Zero}
}

func (s *Store) indexOf(productID uuid.UUID) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of an existing line or appends a new one
// with quantity 1 and the default substitution preference.
func (s *Store) AddItem(productID uuid.UUID, unitPrice decimal.Decimal, name string, weight *string) {
	if idx := s.indexOf(productID); idx >= 0 {
		s.items[idx].Quantity++
		return
	}
	s.items = append(s.items, Item{
		ProductID:              productID,
		Name:                   name,
		UnitPrice:              unitPrice,
		Weight:                 weight,
		Quantity:               1,
		SubstitutionPreference: enums.DefaultSubstitutionPreference,
	})
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line.
// It reports whether the product was in the cart.
func (s *Store) UpdateQuantity(productID uuid.UUID, quantity int, pref *enums.SubstitutionPreference) bool {
	idx := s.indexOf(productID)
	if idx < 0 {
		return false
	}
	if quantity <= 0 {
		s.removeAt(idx)
		return true
	}
	s.items[idx].Quantity = quantity
	if pref != nil {
		s.items[idx].SubstitutionPreference = *pref
	}
	return true
}

// RemoveItem drops the line for productID; absent products are a no-op.
func (s *Store) RemoveItem(productID uuid.UUID) {
	if idx := s.indexOf(productID); idx >= 0 {
		s.removeAt(idx)
	}
}

func (s *Store) removeAt(idx int) {
	s.items = append(s.items[:idx], s.items[idx+1:]...)
}

// Clear empties the cart and drops any applied discount.
func (s *Store) Clear() {
	s.items = nil
	s.discount = decimal.Zero
}

// Items returns a copy in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) ServiceFee() decimal.Decimal {
	return s.pricing.ServiceFee.Fee(s.Subtotal())
}

func (s *Store) DeliveryFee() decimal.Decimal {
	return s.pricing.DeliveryFee(s.Subtotal())
}

// ApplyDiscount replaces the applied discount. Negative amounts are rejected.
func (s *Store) ApplyDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be >= 0")
	}
	s.discount = amount
	return nil
}

func (s *Store) Discount() decimal.Decimal {
	return s.discount
}

func (s *Store) MeetsMinimumOrder() bool {
	return s.pricing.Minimum.Meets(s.Subtotal())
}

// FinalTotal is subtotal + service fee + delivery fee - discount, floored at zero.
func (s *Store) FinalTotal() decimal.Decimal {
	return s.pricing.Total(s.Subtotal(), s.discount)
}

func (s *Store) Quote() pricing.Quote {
	return s.pricing.Quote(s.Subtotal(), s.discount)
}
