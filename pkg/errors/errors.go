package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strconv"
)

// Code is the stable, client-facing failure category.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidIdentity Code = "INVALID_IDENTITY"
	CodeOutOfStock      Code = "OUT_OF_STOCK"
	CodeEmptyCart       Code = "EMPTY_CART"
	CodeTransientStore  Code = "TRANSIENT_STORE_FAILURE"
	CodeIdempotency     Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// ExposeMessage lets the caller's message replace PublicMessage.
	ExposeMessage bool
	// RetryAfter is the Retry-After hint in seconds; zero sends no header.
	RetryAfter int
}

// RetryAfterHeader returns the header value, or "" when no hint applies.
func (m Metadata) RetryAfterHeader() string {
	if m.RetryAfter <= 0 {
		return ""
	}
	return strconv.Itoa(m.RetryAfter)
}

func clientFault(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, ExposeMessage: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:      clientFault(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:    clientFault(http.StatusUnauthorized, "authentication required", false),
	CodeNotFound:        clientFault(http.StatusNotFound, "resource not found", false),
	CodeConflict:        clientFault(http.StatusConflict, "conflict detected", false),
	CodeInvalidIdentity: clientFault(http.StatusBadRequest, "cart identity is invalid", false),
	CodeOutOfStock:      clientFault(http.StatusConflict, "insufficient stock", true),
	CodeEmptyCart:       clientFault(http.StatusUnprocessableEntity, "cart is empty", false),
	CodeIdempotency:     clientFault(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:       clientFault(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeTransientStore: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "store temporarily unavailable",
		RetryAfter:    1,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

// MetadataFor falls back to INTERNAL_ERROR for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		meta = metadataByCode[CodeInternal]
	}
	return meta
}

// Error is a coded failure with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
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

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	return As(err).codeOrEmpty() == code
}

// IsRetryable reports whether a client may safely retry after err.
func IsRetryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.code).Retryable
}

func (e *Error) codeOrEmpty() Code {
	if e == nil {
		return ""
	}
	return e.code
}
