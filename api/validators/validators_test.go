package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
)

func TestSanitizeStringCutsOnRuneBoundary(t *testing.T) {
	input := "a" + strings.Repeat("خ", 150)
	got := SanitizeString(input, 100)
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf-8, got %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Fatalf("expected 100 runes got %d", n)
	}
}

func TestSanitizeStringCleansInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"trims", "  milk  ", 100, "milk"},
		{"collapses whitespace", "full \t\n cream   milk", 100, "full cream milk"},
		{"drops control characters", "mi\x00lk\x07", 100, "milk"},
		{"drops invalid bytes", "mi\xfflk", 100, "milk"},
		{"no trailing space at cap", "abc def", 4, "abc"},
		{"unbounded", strings.Repeat("x", 300), 0, strings.Repeat("x", 300)},
		{"arabic", "  حليب   طازج ", 100, "حليب طازج"},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.input, tt.max); got != tt.want {
			t.Fatalf("%s: expected %q got %q", tt.name, tt.want, got)
		}
	}
}

func TestParseQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&category_id=nope&in_stock=TRUE&flag=maybe&q=%20%20eggs%20", nil)

	if _, err := ParseQueryInt(r, "limit", 20, 1, 100); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range limit to be rejected, got %v", err)
	}
	if v, err := ParseQueryInt(r, "missing", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default 20 got %d %v", v, err)
	}
	if _, err := ParseQueryUUID(r, "category_id"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected malformed uuid to be rejected, got %v", err)
	}
	if id, err := ParseQueryUUID(r, "brand_id"); err != nil || id != nil {
		t.Fatalf("expected absent uuid to be nil, got %v %v", id, err)
	}
	if v, err := ParseQueryBool(r, "in_stock"); err != nil || !v {
		t.Fatalf("expected in_stock=true, got %v %v", v, err)
	}
	if _, err := ParseQueryBool(r, "flag"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected non-boolean flag to be rejected, got %v", err)
	}
	if got := QuerySearchTerm(r, "q", 100); got != "eggs" {
		t.Fatalf("expected sanitized search term, got %q", got)
	}
}

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

type basketRequest struct {
	Items []lineRequest `json:"items" validate:"dive"`
	Code  string        `json:"barcode_code" validate:"omitempty,max=4"`
}

func decodeDetails(t *testing.T, body string) (*pkgerrors.Error, map[string]string) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest basketRequest
	err := DecodeJSONBody(r, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for %s, got %v", body, err)
	}
	details, _ := typed.Details().(map[string]string)
	return typed, details
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	typed, _ := decodeDetails(t, ``)
	if typed.Message() != "request body is required" {
		t.Fatalf("unexpected message for empty body: %s", typed.Message())
	}

	_, details := decodeDetails(t, `{"items":[{"product_id":"p","quantity":"two"}]}`)
	if details["items.quantity"] != "must be an integer" {
		t.Fatalf("expected type detail, got %v", details)
	}

	_, details = decodeDetails(t, `{"items":[],"coupon":"X"}`)
	if details["coupon"] != "is not allowed" {
		t.Fatalf("expected unknown field detail, got %v", details)
	}

	_, details = decodeDetails(t, `{"items":[{"product_id":"p","quantity":1},{"product_id":"q","quantity":100}],"barcode_code":"TOOLONG"}`)
	if details["items[1].quantity"] != "must be at most 99" {
		t.Fatalf("expected dive index in detail, got %v", details)
	}
	if details["barcode_code"] != "must be at most 4 characters" {
		t.Fatalf("expected string length detail, got %v", details)
	}

	typed, _ = decodeDetails(t, `{"items":[]} {"items":[]}`)
	if typed.Message() != "request body must contain a single JSON object" {
		t.Fatalf("unexpected message for trailing data: %s", typed.Message())
	}

	typed, _ = decodeDetails(t, `{"items":[`+strings.Repeat(`{"product_id":"p","quantity":1},`, MaxBodyBytes/30)+`]}`)
	if typed.Message() != "request body too large" {
		t.Fatalf("unexpected message for oversized body: %s", typed.Message())
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"product_id":"p","quantity":2}]}`))
	var dest basketRequest
	if err := DecodeJSONBody(r, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dest.Items) != 1 || dest.Items[0].Quantity != 2 {
		t.Fatalf("unexpected decode result %+v", dest)
	}
}
