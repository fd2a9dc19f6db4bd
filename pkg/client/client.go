// Package client is a Go client for the customer-facing storefront API.
// Transient failures (network errors and 5xx) are retried with bounded
// exponential backoff; mutations keep one Idempotency-Key across attempts so
// a retried request is never applied twice.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/types"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 200 * time.Millisecond
	maxBackoff         = 2 * time.Second
	errorBodyLimit     = 64 * 1024
)

var errBaseURLRequired = errors.New("api base url is required")

type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	maxRetries  uint64
	backoffBase time.Duration
	logg        *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRetry overrides the retry budget. maxRetries counts retries after the
// first attempt; zero disables retrying.
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if base > 0 {
			c.backoffBase = base
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     trimmed,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		logg:        logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type Branch struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Phone   *string   `json:"phone,omitempty"`
}

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type Brand struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	LogoURL *string   `json:"logo_url,omitempty"`
}

type Product struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Price      types.Money  `json:"price"`
	SalePrice  *types.Money `json:"sale_price,omitempty"`
	Weight     *string      `json:"weight,omitempty"`
	ImageURL   *string      `json:"image_url,omitempty"`
	InStock    bool         `json:"in_stock"`
	CategoryID *uuid.UUID   `json:"category_id,omitempty"`
	BrandID    *uuid.UUID   `json:"brand_id,omitempty"`
}

type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type Points struct {
	UserID           uuid.UUID `json:"user_id"`
	PointsBalance    int64     `json:"points_balance"`
	RedeemablePoints int64     `json:"redeemable_points"`
}

type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	Points      int64      `json:"points"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	OrderID     *string    `json:"order_id,omitempty"`
	BarcodeID   *uuid.UUID `json:"barcode_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Barcode struct {
	ID            uuid.UUID   `json:"id"`
	Code          string      `json:"code"`
	PointsValue   int64       `json:"points_value"`
	MonetaryValue types.Money `json:"monetary_value"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
	UsedAt        *time.Time  `json:"used_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
	ExpiredAt     *time.Time  `json:"expired_at,omitempty"`
}

type IssueResult struct {
	Barcode          Barcode `json:"barcode"`
	RemainingBalance int64   `json:"remaining_balance"`
}

type CancelResult struct {
	Barcode Barcode `json:"barcode"`
	Balance int64   `json:"balance"`
}

// Branches lists store branches. Callers rendering a picker may treat an
// error as an empty list; BranchesOrEmpty does exactly that.
func (c *Client) Branches(ctx context.Context) ([]Branch, error) {
	var out []Branch
	err := c.do(ctx, http.MethodGet, "/api/v1/branches", nil, "", &out)
	return out, err
}

// BranchesOrEmpty logs a failed branch lookup and returns no branches.
func (c *Client) BranchesOrEmpty(ctx context.Context) []Branch {
	branches, err := c.Branches(ctx)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "client.branches.unavailable")
		return []Branch{}
	}
	return branches
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, "", &out)
	return out, err
}

func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	var out []Brand
	err := c.do(ctx, http.MethodGet, "/api/v1/brands", nil, "", &out)
	return out, err
}

// ProductQuery filters GET /products. Zero values are omitted.
type ProductQuery struct {
	CategoryID *uuid.UUID
	BrandID    *uuid.UUID
	BranchID   *uuid.UUID
	Search     string
	Limit      int
	Cursor     string
}

func (q ProductQuery) encode() string {
	v := url.Values{}
	if q.CategoryID != nil {
		v.Set("category_id", q.CategoryID.String())
	}
	if q.BrandID != nil {
		v.Set("brand_id", q.BrandID.String())
	}
	if q.BranchID != nil {
		v.Set("branch_id", q.BranchID.String())
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Products(ctx context.Context, query ProductQuery) (*Page[Product], error) {
	var out Page[Product]
	if err := c.do(ctx, http.MethodGet, "/api/v1/products"+query.encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Points(ctx context.Context) (*Points, error) {
	var out Points
	if err := c.do(ctx, http.MethodGet, "/api/v1/loyalty/points", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Transactions(ctx context.Context, limit int, cursor string) (*Page[Transaction], error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		v.Set("cursor", cursor)
	}
	path := "/api/v1/loyalty/transactions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out Page[Transaction]
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueBarcode converts points into a barcode. An empty idempotencyKey gets a
// fresh one; pass the same key to resume a mutation after a crash.
func (c *Client) IssueBarcode(ctx context.Context, points int64, idempotencyKey string) (*IssueResult, error) {
	body := map[string]int64{"points": points}
	var out IssueResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/loyalty-barcode", body, keyOrNew(idempotencyKey), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyBarcodes(ctx context.Context) ([]Barcode, error) {
	var out []Barcode
	err := c.do(ctx, http.MethodGet, "/api/v1/loyalty-barcode/mine", nil, "", &out)
	return out, err
}

func (c *Client) CancelBarcode(ctx context.Context, barcodeID uuid.UUID, idempotencyKey string) (*CancelResult, error) {
	path := "/api/v1/loyalty-barcode/" + url.PathEscape(barcodeID.String()) + "/cancel"
	var out CancelResult
	if err := c.do(ctx, http.MethodPost, path, nil, keyOrNew(idempotencyKey), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func keyOrNew(key string) string {
	if trimmed := strings.TrimSpace(key); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.backoffBase)
	b = retry.WithCappedDuration(maxBackoff, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(c.maxRetries, b)
}

// do sends one logical request, retrying transient failures. The body is
// encoded once so every attempt sends identical bytes under the same key.
func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		payload = encoded
	}

	attempt := 0
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.attempt(ctx, method, path, payload, idempotencyKey, dest)
		if err == nil {
			return nil
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Retryable() && typed.Code() != pkgerrors.CodeRateLimit {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"method":  method,
				"path":    path,
				"attempt": attempt,
				"error":   err.Error(),
			}), "client.request.retry")
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, idempotencyKey string, dest any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode response")
	}
	return nil
}

// decodeError maps the server's error envelope onto a typed error so callers
// can branch on the same codes the server uses.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var envelope types.ErrorEnvelope
	code := pkgerrors.CodeForStatus(resp.StatusCode)
	message := http.StatusText(resp.StatusCode)
	var details any
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error.Code != "" {
			code = pkgerrors.Code(envelope.Error.Code)
		}
		if envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		details = envelope.Error.Details
	}

	// Any 5xx is retryable from the caller's side even when the server
	// labelled it otherwise.
	if resp.StatusCode >= 500 && !pkgerrors.MetadataFor(code).Retryable {
		code = pkgerrors.CodeDependency
	}

	typed := pkgerrors.New(code, message)
	if details != nil {
		typed = typed.WithDetails(details)
	}
	return typed
}
