package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
)

type recordedRequest struct {
	method string
	path   string
	key    string
	auth   string
	body   string
}

type scriptedServer struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []func(w http.ResponseWriter)
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.RequestURI(),
		key:    r.Header.Get("Idempotency-Key"),
		auth:   r.Header.Get("Authorization"),
		body:   string(body),
	})
	respond := s.responses[len(s.responses)-1]
	if idx < len(s.responses) {
		respond = s.responses[idx]
	}
	s.mu.Unlock()
	respond(w)
}

func jsonResponse(status int, payload string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}
}

func newTestClient(t *testing.T, script *scriptedServer) *Client {
	t.Helper()
	srv := httptest.NewServer(script)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithToken("tok"), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestIssueBarcodeRetriesWithSameKey(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusServiceUnavailable, `{"error":{"code":"DEPENDENCY_ERROR","message":"dependency unavailable"}}`),
		jsonResponse(http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`),
		jsonResponse(http.StatusCreated, `{"data":{"barcode":{"code":"FBABCDEFGH23","points_value":1000,"monetary_value":"35.00","status":"active"},"remaining_balance":0}}`),
	}}
	c := newTestClient(t, script)

	result, err := c.IssueBarcode(context.Background(), 1000, "")
	require.NoError(t, err)
	assert.Equal(t, "FBABCDEFGH23", result.Barcode.Code)
	assert.Equal(t, "35.00", result.Barcode.MonetaryValue.String())

	require.Len(t, script.requests, 3)
	key := script.requests[0].key
	require.NotEmpty(t, key)
	for _, req := range script.requests {
		assert.Equal(t, key, req.key)
		assert.Equal(t, "Bearer tok", req.auth)
		assert.JSONEq(t, `{"points":1000}`, req.body)
	}
}

func TestInProgressConflictIsRetriedWithSameKey(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusConflict, `{"error":{"code":"IDEMPOTENCY_IN_PROGRESS","message":"idempotency key in progress","retryable":true}}`),
		jsonResponse(http.StatusCreated, `{"data":{"barcode":{"code":"FBABCDEFGH23","points_value":1000,"monetary_value":"35.00","status":"active"},"remaining_balance":0}}`),
	}}
	c := newTestClient(t, script)

	_, err := c.IssueBarcode(context.Background(), 1000, "fixed-key")
	require.NoError(t, err)
	require.Len(t, script.requests, 2)
	assert.Equal(t, "fixed-key", script.requests[1].key)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusUnprocessableEntity, `{"error":{"code":"INSUFFICIENT_BALANCE","message":"insufficient points balance","details":{"balance":400,"requested":1000}}}`),
	}}
	c := newTestClient(t, script)

	_, err := c.IssueBarcode(context.Background(), 1000, "fixed-key")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))
	assert.Equal(t, "insufficient points balance", pkgerrors.As(err).Message())
	assert.Len(t, script.requests, 1)
	assert.Equal(t, "fixed-key", script.requests[0].key)
}

func TestRetriesAreBounded(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusBadGateway, `upstream down`),
	}}
	c := newTestClient(t, script)

	_, err := c.Points(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Len(t, script.requests, 4)
}

func TestNetworkErrorIsRetryableDependency(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	_, err = c.Points(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestBranchesOrEmptyFallsBack(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"resource not found"}}`),
	}}
	c := newTestClient(t, script)

	branches := c.BranchesOrEmpty(context.Background())
	assert.NotNil(t, branches)
	assert.Empty(t, branches)
}

func TestProductsQueryEncoding(t *testing.T) {
	script := &scriptedServer{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusOK, `{"data":{"items":[{"id":"`+uuid.NewString()+`","name":"Milk","price":"12.50","in_stock":true}],"next_cursor":"abc"}}`),
	}}
	c := newTestClient(t, script)
	category := uuid.New()

	page, err := c.Products(context.Background(), ProductQuery{CategoryID: &category, Search: "milk", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "abc", page.NextCursor)

	path := script.requests[0].path
	assert.True(t, strings.HasPrefix(path, "/api/v1/products?"))
	assert.Contains(t, path, "category_id="+category.String())
	assert.Contains(t, path, "q=milk")
	assert.Contains(t, path, "limit=10")
	assert.Empty(t, script.requests[0].key, "reads carry no idempotency key")
}

func TestCancelBarcodeDecodesResult(t *testing.T) {
	id := uuid.New()
	resp, _ := json.Marshal(map[string]any{"data": map[string]any{
		"barcode": map[string]any{"id": id, "code": "FBABCDEFGH23", "status": "cancelled", "monetary_value": "35.00"},
		"balance": 1000,
	}})
	script := &scriptedServer{responses: []func(http.ResponseWriter){jsonResponse(http.StatusOK, string(resp))}}
	c := newTestClient(t, script)

	result, err := c.CancelBarcode(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Barcode.Status)
	assert.Equal(t, int64(1000), result.Balance)
	assert.Equal(t, "/api/v1/loyalty-barcode/"+id.String()+"/cancel", script.requests[0].path)
}
