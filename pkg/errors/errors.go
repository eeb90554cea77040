// Package errors carries the typed API error used across the service. Every
// Code maps to an HTTP status and a public message; handlers return *Error
// and the response layer decides what the caller may see.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeOutOfStock             Code = "OUT_OF_STOCK"
	CodeQuantityExceedsStock   Code = "QUANTITY_EXCEEDS_STOCK"
	CodeCombinationUnavailable Code = "COMBINATION_UNAVAILABLE"
	// Payment was authorized but the order could not be persisted; needs manual follow-up.
	CodePaymentStockAnomaly Code = "PAYMENT_STOCK_ANOMALY"
)

// Metadata is the client-facing contract of a Code.
type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage replaces the error's own message unless ShowMessage is set.
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
}

type visibility uint8

const (
	opaque visibility = iota
	showMessage
	showDetails
	showBoth
)

func meta(status int, public string, vis visibility) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      status >= http.StatusInternalServerError && status != http.StatusBadGateway,
		PublicMessage:  public,
		ShowMessage:    vis == showMessage || vis == showBoth,
		DetailsAllowed: vis == showDetails || vis == showBoth,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             meta(http.StatusBadRequest, "validation failed", showBoth),
	CodeUnauthorized:           meta(http.StatusUnauthorized, "authentication required", showMessage),
	CodeForbidden:              meta(http.StatusForbidden, "access denied", showMessage),
	CodeNotFound:               meta(http.StatusNotFound, "resource not found", showMessage),
	CodeConflict:               meta(http.StatusConflict, "conflict detected", showMessage),
	CodeStateConflict:          meta(http.StatusUnprocessableEntity, "state transition disallowed", showBoth),
	CodeIdempotency:            meta(http.StatusConflict, "idempotency key reused", showBoth),
	CodeRateLimit:              meta(http.StatusTooManyRequests, "rate limit exceeded", showMessage),
	CodeInternal:               meta(http.StatusInternalServerError, "internal server error", opaque),
	CodeDependency:             meta(http.StatusServiceUnavailable, "dependency unavailable", showDetails),
	CodeOutOfStock:             meta(http.StatusConflict, "item is out of stock", showBoth),
	CodeQuantityExceedsStock:   meta(http.StatusConflict, "requested quantity exceeds stock", showBoth),
	CodeCombinationUnavailable: meta(http.StatusUnprocessableEntity, "combination unavailable", showBoth),
	CodePaymentStockAnomaly:    meta(http.StatusBadGateway, "payment succeeded but stock update failed", showDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure with an optional cause and client details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps err reachable through errors.Is/As. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
