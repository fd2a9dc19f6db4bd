package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/internal/catalog"
	"github.com/freshbasket/storefront-backend/internal/pricing"
	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/db/dbtest"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
)

type fakeBarcodes struct {
	barcode *models.RedemptionBarcode
	err     error
	calls   int
}

func (f *fakeBarcodes) Validate(_ context.Context, _ uuid.UUID, _ string) (*models.RedemptionBarcode, error) {
	f.calls++
	return f.barcode, f.err
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	barcodes *fakeBarcodes
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	products, err := catalog.NewService(catalog.NewRepository(conn), nil)
	require.NoError(t, err)
	barcodes := &fakeBarcodes{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.Wrap(conn),
		Products:   products,
		Barcodes:   barcodes,
		Pricing:    pricing.DefaultCalculator(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, barcodes: barcodes}
}

func (f fixture) product(t *testing.T, name, price string) models.Product {
	t.Helper()
	p := models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		InStock:   true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.conn.Create(&p).Error)
	return p
}

func intPtr(v int) *int { return &v }

func TestPutItemAddsAndIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	apples := f.product(t, "Apples", "60")

	view, err := f.svc.PutItem(ctx, user, apples.ID, PutItemInput{})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Equal(t, enums.SubstitutionCallMe, view.Items[0].SubstitutionPreference)

	view, err = f.svc.PutItem(ctx, user, apples.ID, PutItemInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "120.00", view.Quote.Subtotal.String())
	assert.Equal(t, "15.00", view.Quote.DeliveryFee.String())
	assert.False(t, view.CheckoutAllowed)

	reloaded, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 2, reloaded.Items[0].Quantity)
}

func TestPutItemAbsoluteQuantityAndRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	bread := f.product(t, "Bread", "25")
	eggs := f.product(t, "Eggs", "40")

	pref := enums.SubstitutionSimilarProduct
	view, err := f.svc.PutItem(ctx, user, bread.ID, PutItemInput{Quantity: intPtr(8), SubstitutionPreference: &pref})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 8, view.Items[0].Quantity)
	assert.Equal(t, enums.SubstitutionSimilarProduct, view.Items[0].SubstitutionPreference)
	assert.True(t, view.CheckoutAllowed)

	_, err = f.svc.PutItem(ctx, user, eggs.ID, PutItemInput{})
	require.NoError(t, err)

	view, err = f.svc.PutItem(ctx, user, bread.ID, PutItemInput{Quantity: intPtr(0)})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, eggs.ID, view.Items[0].ProductID)

	view, err = f.svc.PutItem(ctx, user, uuid.New(), PutItemInput{Quantity: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestPutItemKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	first := f.product(t, "First", "1")
	second := f.product(t, "Second", "1")
	third := f.product(t, "Third", "1")

	for _, p := range []models.Product{first, second, third} {
		_, err := f.svc.PutItem(ctx, user, p.ID, PutItemInput{})
		require.NoError(t, err)
	}
	_, err := f.svc.PutItem(ctx, user, first.ID, PutItemInput{Quantity: intPtr(4)})
	require.NoError(t, err)

	view, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 3)
	assert.Equal(t, []string{"First", "Second", "Third"}, []string{view.Items[0].Name, view.Items[1].Name, view.Items[2].Name})
	assert.Equal(t, 6, view.ItemCount)
}

func TestPutItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.PutItem(ctx, user, uuid.New(), PutItemInput{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	p := f.product(t, "Gone", "5")
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("in_stock", false).Error)
	_, err = f.svc.PutItem(ctx, user, p.ID, PutItemInput{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PutItem(ctx, user, p.ID, PutItemInput{Quantity: intPtr(MaxItemQuantity + 1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad := enums.SubstitutionPreference("shrug")
	_, err = f.svc.PutItem(ctx, user, p.ID, PutItemInput{SubstitutionPreference: &bad})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	view, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestPutItemIncrementStopsAtMaxQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "Water 500ml", "1")

	_, err := f.svc.PutItem(ctx, user, p.ID, PutItemInput{Quantity: intPtr(MaxItemQuantity)})
	require.NoError(t, err)

	_, err = f.svc.PutItem(ctx, user, p.ID, PutItemInput{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	view, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, MaxItemQuantity, view.Items[0].Quantity)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.product(t, "A", "10")
	b := f.product(t, "B", "10")
	_, err := f.svc.PutItem(ctx, user, a.ID, PutItemInput{})
	require.NoError(t, err)
	_, err = f.svc.PutItem(ctx, user, b.ID, PutItemInput{})
	require.NoError(t, err)

	view, err := f.svc.RemoveItem(ctx, user, a.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	view, err = f.svc.RemoveItem(ctx, user, uuid.New())
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	require.NoError(t, f.svc.Clear(ctx, user))
	view, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Quote.Total.String())
}

func TestQuoteUsesCatalogPricesAndBarcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	rice := f.product(t, "Rice", "130")
	sale := decimal.RequireFromString("90")
	oil := f.product(t, "Oil", "100")
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", oil.ID).Update("sale_price", sale).Error)

	f.barcodes.barcode = &models.RedemptionBarcode{Code: "FBABCDEFGHJK", MonetaryValue: decimal.NewFromInt(35)}
	view, err := f.svc.Quote(ctx, user, QuoteInput{
		Items: []QuoteItemInput{
			{ProductID: rice.ID, Quantity: 2},
			{ProductID: oil.ID, Quantity: 1},
		},
		BarcodeCode: "FBABCDEFGHJK",
	})
	require.NoError(t, err)
	assert.Equal(t, "350.00", view.Quote.Subtotal.String())
	assert.Equal(t, "15.00", view.Quote.DeliveryFee.String())
	assert.Equal(t, "35.00", view.Quote.Discount.String())
	assert.Equal(t, "330.00", view.Quote.Total.String())
	assert.True(t, view.CheckoutAllowed)
	require.NotNil(t, view.AppliedBarcode)
	assert.Equal(t, 1, f.barcodes.calls)

	saved, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, saved.Items)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "P", "10")

	_, err := f.svc.Quote(ctx, uuid.New(), QuoteInput{Items: []QuoteItemInput{{ProductID: p.ID, Quantity: 0}}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Quote(ctx, uuid.New(), QuoteInput{Items: []QuoteItemInput{{ProductID: p.ID, Quantity: 1}, {ProductID: p.ID, Quantity: 2}}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Quote(ctx, uuid.New(), QuoteInput{Items: []QuoteItemInput{{ProductID: uuid.New(), Quantity: 1}}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	f.barcodes.err = pkgerrors.New(pkgerrors.CodeInvalidState, "barcode is used")
	_, err = f.svc.Quote(ctx, uuid.New(), QuoteInput{Items: []QuoteItemInput{{ProductID: p.ID, Quantity: 1}}, BarcodeCode: "FBX"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
