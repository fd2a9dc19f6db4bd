package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/internal/pricing"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// barcodeValidator checks a redemption barcode without consuming it.
type barcodeValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, code string) (*models.RedemptionBarcode, error)
}

// Service exposes the saved cart and stateless quotes.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	PutItem(ctx context.Context, userID, productID uuid.UUID, input PutItemInput) (*View, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*View, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
	barcodes barcodeValidator
	pricing  *pricing.Calculator
	logg     *logger.Logger
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Products   productLoader
	Barcodes   barcodeValidator
	Pricing    *pricing.Calculator
	Logger     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		products: params.Products,
		barcodes: params.Barcodes,
		pricing:  params.Pricing,
		logg:     logg,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewView(s.storeFor(cart)), nil
}

func (s *service) PutItem(ctx context.Context, userID, productID uuid.UUID, input PutItemInput) (*View, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if input.Quantity != nil && *input.Quantity > MaxItemQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be <= %d", MaxItemQuantity))
	}
	if input.SubstitutionPreference != nil && !input.SubstitutionPreference.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid substitution preference")
	}

	// The product is resolved before the transaction opens so catalog reads
	// never wait on the cart's connection.
	var product *models.Product
	if input.Quantity == nil || *input.Quantity > 0 {
		loaded, err := s.loadPurchasable(ctx, productID)
		if err != nil {
			return nil, err
		}
		product = loaded
	}

	var view *View
	err := s.mutate(ctx, userID, func(store *Store) error {
		present := store.indexOf(productID) >= 0
		switch {
		case input.Quantity == nil:
			if currentQuantity(store, productID)+1 > MaxItemQuantity {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be <= %d", MaxItemQuantity))
			}
			store.AddItem(product.ID, product.EffectivePrice(), product.Name, product.Weight)
			if input.SubstitutionPreference != nil {
				store.UpdateQuantity(productID, currentQuantity(store, productID), input.SubstitutionPreference)
			}
		case !present && *input.Quantity <= 0:
			// nothing to remove
		case !present:
			store.AddItem(product.ID, product.EffectivePrice(), product.Name, product.Weight)
			store.UpdateQuantity(productID, *input.Quantity, input.SubstitutionPreference)
		default:
			store.UpdateQuantity(productID, *input.Quantity, input.SubstitutionPreference)
		}
		view = NewView(store)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"product_id": productID.String(),
	}), "cart.item_updated")
	return view, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	var view *View
	err := s.mutate(ctx, userID, func(store *Store) error {
		store.RemoveItem(productID)
		view = NewView(store)
		return nil
	})
	return view, err
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.mutate(ctx, userID, func(store *Store) error {
		store.Clear()
		return nil
	})
}

// Quote prices the submitted lines at current catalog prices. The saved cart
// is not read or written.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*View, error) {
	ids := make([]uuid.UUID, 0, len(input.Items))
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
		}
		if item.SubstitutionPreference != nil && !item.SubstitutionPreference.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid substitution preference")
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in quote").WithDetails(map[string]any{
				"product_id": item.ProductID,
			})
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	store := NewStore(s.pricing)
	var missing []uuid.UUID
	for _, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok {
			missing = append(missing, item.ProductID)
			continue
		}
		store.AddItem(product.ID, product.EffectivePrice(), product.Name, product.Weight)
		store.UpdateQuantity(product.ID, item.Quantity, item.SubstitutionPreference)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
			"product_ids": missing,
		})
	}

	var applied *string
	if input.BarcodeCode != "" {
		if s.barcodes == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "barcode validation unavailable")
		}
		barcode, err := s.barcodes.Validate(ctx, userID, input.BarcodeCode)
		if err != nil {
			return nil, err
		}
		if err := store.ApplyDiscount(barcode.MonetaryValue); err != nil {
			return nil, err
		}
		applied = &barcode.Code
	}

	view := NewView(store)
	view.AppliedBarcode = applied
	return view, nil
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, fn func(store *Store) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if cart == nil {
			cart = &models.Cart{UserID: userID}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
		}

		store := s.storeFor(cart)
		if err := fn(store); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, cart.ID, toModels(store.Items())); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart items")
		}
		return nil
	})
}

func (s *service) loadPurchasable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock")
	}
	return product, nil
}

func (s *service) storeFor(cart *models.Cart) *Store {
	store := NewStore(s.pricing)
	if cart == nil {
		return store
	}
	for _, row := range cart.Items {
		store.items = append(store.items, Item{
			ProductID:              row.ProductID,
			Name:                   row.Name,
			UnitPrice:              row.UnitPrice,
			Weight:                 row.Weight,
			Quantity:               row.Quantity,
			SubstitutionPreference: row.SubstitutionPreference,
		})
	}
	return store
}

func currentQuantity(store *Store, productID uuid.UUID) int {
	if idx := store.indexOf(productID); idx >= 0 {
		return store.items[idx].Quantity
	}
	return 0
}

func toModels(items []Item) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.CartItem{
			ProductID:              item.ProductID,
			Name:                   item.Name,
			UnitPrice:              item.UnitPrice,
			Weight:                 item.Weight,
			Quantity:               item.Quantity,
			SubstitutionPreference: item.SubstitutionPreference,
		})
	}
	return out
}
