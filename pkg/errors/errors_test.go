package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeInvalidAmount, status: http.StatusBadRequest, publicMsg: "invalid amount", detailsOK: true},
		{code: CodeInsufficientBalance, status: http.StatusUnprocessableEntity, publicMsg: "insufficient points balance", detailsOK: true},
		{code: CodeInvalidState, status: http.StatusConflict, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeIdempotencyPending, status: http.StatusConflict, publicMsg: "request with this idempotency key is still in progress", retryable: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		require.Equal(t, tt.status, meta.HTTPStatus, "code %s", tt.code)
		require.Equal(t, tt.publicMsg, meta.PublicMessage, "code %s", tt.code)
		require.Equal(t, tt.retryable, meta.Retryable, "code %s", tt.code)
		require.Equal(t, tt.detailsOK, meta.DetailsAllowed, "code %s", tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing foo", base.Message())
	require.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "foo"})
	require.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeConflict, wrapped.Code())
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("redeem: %w", New(CodeInsufficientBalance, "balance too low"))
	got := As(err)
	require.NotNil(t, got)
	require.Equal(t, CodeInsufficientBalance, got.Code())
	require.True(t, HasCode(err, CodeInsufficientBalance))
	require.False(t, HasCode(err, CodeInvalidAmount))
	require.Nil(t, As(nil))
}

func TestCodeForStatus(t *testing.T) {
	require.Equal(t, CodeNotFound, CodeForStatus(http.StatusNotFound))
	require.Equal(t, CodeDependency, CodeForStatus(http.StatusBadGateway))
	require.Equal(t, CodeInternal, CodeForStatus(http.StatusTeapot))
}

func TestDumpRecordsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "ledger unavailable")
	d := Dump(err)
	require.Equal(t, CodeDependency, d.Code)
	require.Len(t, d.Chain, 2)
	require.Empty(t, d.PGCode)
}
