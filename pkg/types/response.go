// Package types holds the JSON wire types shared by the HTTP handlers and
// the Go client, so both sides agree on the envelope and money shapes.
package types

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a non-2xx response. Retryable tells callers whether
// repeating the request with the same Idempotency-Key can succeed.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
