package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshbasket/storefront-backend/api/controllers"
	"github.com/freshbasket/storefront-backend/api/middleware"
	"github.com/freshbasket/storefront-backend/internal/barcodes"
	"github.com/freshbasket/storefront-backend/internal/cart"
	"github.com/freshbasket/storefront-backend/internal/catalog"
	"github.com/freshbasket/storefront-backend/internal/loyalty"
	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Gatherer prometheus.Gatherer
	Catalog  catalog.Service
	Cart     cart.Service
	Loyalty  loyalty.Service
	Barcodes barcodes.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(p)))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var (
		idempotent = middleware.Idempotency(nil, 0, logg)
		issueLimit = func(next http.Handler) http.Handler { return next }
	)
	if p.Redis != nil {
		idempotent = middleware.Idempotency(p.Redis, cfg.Loyalty.IdempotencyTTL, logg)
		if cfg.RateLimit.Enabled {
			policy := middleware.NewRateLimitPolicy("barcode-issue", cfg.Loyalty.IssueRateLimit, cfg.Loyalty.IssueRateWindow)
			issueLimit = middleware.RateLimit(policy, p.Redis, logg, http.MethodPost)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/branches", controllers.CatalogBranches(p.Catalog, logg))
		r.Get("/products", controllers.CatalogProducts(p.Catalog, logg))
		r.Get("/categories", controllers.CatalogCategories(p.Catalog, logg))
		r.Get("/brands", controllers.CatalogBrands(p.Catalog, logg))

		r.Get("/cart", controllers.CartFetch(p.Cart, logg))
		r.Delete("/cart", controllers.CartClear(p.Cart, logg))
		r.Put("/cart/items/{productId}", controllers.CartPutItem(p.Cart, logg))
		r.Delete("/cart/items/{productId}", controllers.CartRemoveItem(p.Cart, logg))
		r.Post("/cart/quote", controllers.CartQuote(p.Cart, logg))

		r.Get("/loyalty/points", controllers.LoyaltyPoints(p.Loyalty, logg))
		r.Get("/loyalty/transactions", controllers.LoyaltyTransactions(p.Loyalty, cfg.Loyalty.TransactionsLimit, logg))

		// Idempotency is attached per route so the matched pattern is known.
		r.With(issueLimit, idempotent).Post("/loyalty-barcode", controllers.BarcodeIssue(p.Barcodes, logg))
		r.Get("/loyalty-barcode/mine", controllers.BarcodeListMine(p.Barcodes, logg))
		r.With(idempotent).Post("/loyalty-barcode/{barcodeId}/cancel", controllers.BarcodeCancel(p.Barcodes, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.With(idempotent).Post("/loyalty/earn", controllers.AdminLoyaltyEarn(p.Loyalty, logg))
		r.Get("/loyalty/{userId}/reconcile", controllers.AdminLoyaltyReconcile(p.Loyalty, logg))
		r.With(idempotent).Post("/loyalty-barcode/redeem", controllers.AdminBarcodeRedeem(p.Barcodes, logg))
	})

	return r
}

func readinessDeps(p RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["db"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	return deps
}
