package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshbasket/storefront-backend/internal/barcodes"
	"github.com/freshbasket/storefront-backend/internal/cart"
	"github.com/freshbasket/storefront-backend/internal/catalog"
	"github.com/freshbasket/storefront-backend/internal/loyalty"
	"github.com/freshbasket/storefront-backend/internal/pricing"
	pkgAuth "github.com/freshbasket/storefront-backend/pkg/auth"
	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/db/dbtest"
	"github.com/freshbasket/storefront-backend/pkg/db/models"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/metrics"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
)

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type harness struct {
	handler http.Handler
	conn    *gorm.DB
	cfg     *config.Config
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	tx := db.Wrap(conn)
	logg := logger.Nop()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "freshbasket-test", ExpirationMinutes: 30},
		Loyalty: config.LoyaltyConfig{
			BarcodeTTL:        720 * time.Hour,
			CodeMaxAttempts:   5,
			IssueRateLimit:    3,
			IssueRateWindow:   time.Minute,
			IdempotencyTTL:    time.Hour,
			TransactionsLimit: 25,
		},
		RateLimit: config.RateLimitConfig{Enabled: true},
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	ledger, err := loyalty.NewService(loyalty.ServiceParams{
		Repository: loyalty.NewRepository(conn),
		Tx:         tx,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("loyalty service: %v", err)
	}
	registry := prometheus.NewRegistry()
	barcodeSvc, err := barcodes.NewService(barcodes.ServiceParams{
		Repository: barcodes.NewRepository(conn),
		Tx:         tx,
		Ledger:     ledger,
		Outbox:     emitter,
		Config:     cfg.Loyalty,
		Metrics:    metrics.NewBarcodeMetrics(registry),
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("barcode service: %v", err)
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(conn),
		Tx:         tx,
		Products:   catalogSvc,
		Barcodes:   barcodeSvc,
		Pricing:    pricing.DefaultCalculator(),
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	handler := NewRouter(RouterParams{
		Config:   cfg,
		Logger:   logg,
		DB:       tx,
		Redis:    newMemoryRedis(),
		Gatherer: registry,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Loyalty:  ledger,
		Barcodes: barcodeSvc,
	})
	return harness{handler: handler, conn: conn, cfg: cfg}
}

func (h harness) token(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (h harness) do(t *testing.T, method, path, token, idemKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body %s: %v", resp.Body.String(), err)
	}
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %s: %v", resp.Body.String(), err)
	}
	return payload.Error.Code
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h := newHarness(t)
	if resp := h.do(t, http.MethodGet, "/health/live", "", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := h.do(t, http.MethodGet, "/health/ready", "", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := h.do(t, http.MethodGet, "/metrics", "", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/v1/loyalty/points", "", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	h := newHarness(t)
	customer := h.token(t, uuid.New(), enums.RoleCustomer)
	resp := h.do(t, http.MethodPost, "/api/admin/v1/loyalty/earn", customer, "k1", `{"user_id":"`+uuid.NewString()+`","order_id":"o1","amount_spent":"10"}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestLoyaltyBarcodeFlow(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	customer := h.token(t, userID, enums.RoleCustomer)
	admin := h.token(t, uuid.New(), enums.RoleAdmin)

	earnBody := `{"user_id":"` + userID.String() + `","order_id":"ord-1","amount_spent":"2500.90"}`
	resp := h.do(t, http.MethodPost, "/api/admin/v1/loyalty/earn", admin, "earn-ord-1", earnBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("earn: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	// A retried order hook with the same key replays rather than earning twice.
	replay := h.do(t, http.MethodPost, "/api/admin/v1/loyalty/earn", admin, "earn-ord-1", earnBody)
	if replay.Code != http.StatusCreated || replay.Body.String() != resp.Body.String() {
		t.Fatalf("earn replay: got %d %s", replay.Code, replay.Body.String())
	}

	var balance loyalty.BalanceDTO
	resp = h.do(t, http.MethodGet, "/api/v1/loyalty/points", customer, "", "")
	decodeData(t, resp, &balance)
	if balance.PointsBalance != 2500 || balance.RedeemablePoints != 2000 {
		t.Fatalf("unexpected balance %+v", balance)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/loyalty-barcode", customer, "", `{"points":2000}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("issue without key: expected 400 got %d", resp.Code)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/loyalty-barcode", customer, "issue-1", `{"points":1500}`)
	if resp.Code != http.StatusBadRequest || decodeErrorCode(t, resp) != "INVALID_AMOUNT" {
		t.Fatalf("issue 1500: expected INVALID_AMOUNT got %d %s", resp.Code, resp.Body.String())
	}

	resp = h.do(t, http.MethodPost, "/api/v1/loyalty-barcode", customer, "issue-2", `{"points":2000}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("issue: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var issued barcodes.IssueResult
	decodeData(t, resp, &issued)
	if issued.RemainingBalance != 500 || issued.Barcode.MonetaryValue.String() != "70.00" {
		t.Fatalf("unexpected issue result %+v", issued)
	}

	product := models.Product{ID: uuid.New(), Name: "Olive oil", Price: decimal.RequireFromString("300"), InStock: true}
	if err := h.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	quoteBody := `{"items":[{"product_id":"` + product.ID.String() + `","quantity":1}],"barcode_code":"` + strings.ToLower(issued.Barcode.Code) + `"}`
	resp = h.do(t, http.MethodPost, "/api/v1/cart/quote", customer, "", quoteBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("quote: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var quote cart.View
	decodeData(t, resp, &quote)
	if quote.Quote.Discount.String() != "70.00" || quote.AppliedBarcode == nil {
		t.Fatalf("expected barcode discount in quote, got %+v", quote.Quote)
	}

	redeemBody := `{"code":"` + issued.Barcode.Code + `","order_id":"ord-2"}`
	resp = h.do(t, http.MethodPost, "/api/admin/v1/loyalty-barcode/redeem", admin, "redeem-ord-2", redeemBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var used barcodes.BarcodeDTO
	decodeData(t, resp, &used)
	if used.Status != enums.BarcodeStatusUsed {
		t.Fatalf("expected used status got %s", used.Status)
	}

	resp = h.do(t, http.MethodPost, "/api/admin/v1/loyalty-barcode/redeem", admin, "redeem-ord-3", `{"code":"`+issued.Barcode.Code+`","order_id":"ord-3"}`)
	if resp.Code != http.StatusConflict || decodeErrorCode(t, resp) != "INVALID_STATE" {
		t.Fatalf("second redeem: expected INVALID_STATE got %d %s", resp.Code, resp.Body.String())
	}

	resp = h.do(t, http.MethodPost, "/api/v1/loyalty-barcode/"+issued.Barcode.ID.String()+"/cancel", customer, "cancel-1", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("cancel used: expected 409 got %d", resp.Code)
	}

	resp = h.do(t, http.MethodGet, "/api/admin/v1/loyalty/"+userID.String()+"/reconcile", admin, "", "")
	var audit loyalty.ReconcileResult
	decodeData(t, resp, &audit)
	if !audit.Consistent || audit.PointsBalance != 500 {
		t.Fatalf("unexpected reconcile %+v", audit)
	}
}

func TestBarcodeIssueRateLimited(t *testing.T) {
	h := newHarness(t)
	customer := h.token(t, uuid.New(), enums.RoleCustomer)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = h.do(t, http.MethodPost, "/api/v1/loyalty-barcode", customer, fmt.Sprintf("k-%d", i), `{"points":1000}`)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on fourth attempt got %d", last.Code)
	}
}
