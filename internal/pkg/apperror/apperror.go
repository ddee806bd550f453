package apperror

import "net/http"

// Kind classifies an error for callers that need to decide whether to
// retry, surface detail to staff, or page an operator.
type Kind int

const (
	// KindValidation: malformed input, rejected before any lock is taken.
	KindValidation Kind = iota
	// KindNotFound: the referenced entity does not exist.
	KindNotFound
	// KindConflict: a guard failed after locks were held; nothing was persisted.
	KindConflict
	// KindTransient: a lock wait timed out; safe to retry, no side effects occurred.
	KindTransient
	// KindExternal: a collaborator (payment processor, broker) failed; prior state kept.
	KindExternal
	// KindInvariant: the store contradicts a core invariant; requires manual reconciliation.
	KindInvariant
	// KindUnauthorized and KindForbidden: auth failures on the staff surface.
	KindUnauthorized
	KindForbidden
)

// AppError is a custom error type that includes an HTTP status code and the
// taxonomy kind. The underlying error, if any, is not exposed to clients.
type AppError struct {
	Kind    Kind
	Code    int    // HTTP status code (e.g., 400, 409, 503)
	Message string // User-facing error message
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message. The kind is
// inferred from the status code; use NewKind when that mapping is wrong.
func New(code int, message string) *AppError {
	return &AppError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
	}
}

// NewKind creates a new AppError with an explicit kind.
func NewKind(kind Kind, code int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation is shorthand for a 400 validation error.
func Validation(message string) *AppError {
	return NewKind(KindValidation, http.StatusBadRequest, message)
}

// Conflict is shorthand for a 409 conflict error.
func Conflict(message string) *AppError {
	return NewKind(KindConflict, http.StatusConflict, message)
}

// Transient is shorthand for a 503 retryable error.
func Transient(message string) *AppError {
	return NewKind(KindTransient, http.StatusServiceUnavailable, message)
}

// External is shorthand for a 502 collaborator failure.
func External(message string) *AppError {
	return NewKind(KindExternal, http.StatusBadGateway, message)
}

// Invariant is shorthand for a 500 integrity violation. Callers are expected
// to log these as critical before returning them; they are never auto-healed.
func Invariant(message string) *AppError {
	return NewKind(KindInvariant, http.StatusInternalServerError, message)
}

func kindForCode(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusServiceUnavailable:
		return KindTransient
	case http.StatusBadGateway:
		return KindExternal
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	default:
		return KindInvariant
	}
}
