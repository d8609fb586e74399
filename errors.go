package authgate

import (
	"errors"
	"net/http"
)

// Kind classifies engine failures. Every kind maps to a stable status and message.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthz
	KindConflict
	KindNotFoundOrExpired
	KindRateLimited
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthz:
		return "authz"
	case KindConflict:
		return "conflict"
	case KindNotFoundOrExpired:
		return "not_found_or_expired"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the declined outcome of an Engine operation. Message is safe to show to
// callers; the wrapped cause is for server-side logs only.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	base  *Error
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the sentinel an error was derived from, so errors.Is(err, ErrInvalidInput)
// holds for field-specific validation errors too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.base != nil && e.base == t)
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}
	return e
}

// wrap returns a copy of e carrying cause.
func (e *Error) wrap(cause error) *Error {
	cp := *e
	cp.base = e.root()
	cp.cause = cause
	return &cp
}

// withMessage returns a copy of e with a more specific public message.
func (e *Error) withMessage(msg string) *Error {
	cp := *e
	cp.base = e.root()
	cp.Message = msg
	return &cp
}

var (
	ErrInvalidInput       = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: "Invalid request"}
	ErrInvalidRole        = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: "Invalid role"}
	ErrMissingClientIP    = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: "Client address unavailable"}
	ErrInvalidCSRFToken   = &Error{Kind: KindAuthz, Status: http.StatusForbidden, Message: "Invalid CSRF token"}
	ErrInvalidCaptcha     = &Error{Kind: KindAuthz, Status: http.StatusBadRequest, Message: "Invalid reCAPTCHA token"}
	ErrInvalidCredentials = &Error{Kind: KindAuthz, Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	ErrEmailNotVerified   = &Error{Kind: KindAuthz, Status: http.StatusForbidden, Message: "Please verify your email first"}
	ErrUnauthorized       = &Error{Kind: KindAuthz, Status: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrAccountExists      = &Error{Kind: KindConflict, Status: http.StatusBadRequest, Message: "User already exists"}
	ErrInvalidToken       = &Error{Kind: KindNotFoundOrExpired, Status: http.StatusBadRequest, Message: "Invalid or expired token"}
	ErrTokenExpired       = &Error{Kind: KindNotFoundOrExpired, Status: http.StatusBadRequest, Message: "Token expired"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: "Too many requests, try again later"}
	ErrStoreUnavailable   = &Error{Kind: KindUnavailable, Status: http.StatusInternalServerError, Message: "Internal server error"}
	ErrHashing            = &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal server error"}
	ErrEngineNotReady     = &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal server error"}
)

// Describe maps any error to the status and message a transport should return.
// Errors that are not *Error become a generic 500.
func Describe(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, e.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
