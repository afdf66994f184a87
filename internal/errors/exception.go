package errors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindNotFound
)

// Exception is an error that knows which HTTP status it maps to.
// Message is always safe to show to clients; Err is the internal cause and is only logged.
type Exception struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error

	generic bool
}

func (e *Exception) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Exception) Unwrap() error {
	return e.Err
}

// Is matches another Exception of the same kind when the target is one of the
// kind sentinels (ErrValidation, ErrNotFound, ...), and matches exactly otherwise.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.generic || t.Message == e.Message
}

var (
	ErrValidation   = &Exception{Kind: KindValidation, Message: "validation failed", StatusCode: http.StatusBadRequest, generic: true}
	ErrConflict     = &Exception{Kind: KindConflict, Message: "conflict", StatusCode: http.StatusConflict, generic: true}
	ErrUnauthorized = &Exception{Kind: KindUnauthorized, Message: "Unauthorized", StatusCode: http.StatusUnauthorized, generic: true}
	ErrNotFound     = &Exception{Kind: KindNotFound, Message: "not found", StatusCode: http.StatusNotFound, generic: true}
	ErrInternal     = &Exception{Kind: KindInternal, Message: "Internal server error", StatusCode: http.StatusInternalServerError, generic: true}
)

func Validation(message string) *Exception {
	return &Exception{Kind: KindValidation, Message: message, StatusCode: http.StatusBadRequest}
}

func Conflict(message string) *Exception {
	return &Exception{Kind: KindConflict, Message: message, StatusCode: http.StatusConflict}
}

func Unauthorized(message string) *Exception {
	return &Exception{Kind: KindUnauthorized, Message: message, StatusCode: http.StatusUnauthorized}
}

func NotFound(message string) *Exception {
	return &Exception{Kind: KindNotFound, Message: message, StatusCode: http.StatusNotFound}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(message string, cause error) *Exception {
	return &Exception{Kind: KindInternal, Message: message, StatusCode: http.StatusInternalServerError, Err: cause}
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-facing message for err, falling back to
// fallback for anything that is not an Exception.
func PublicMessage(err error, fallback string) string {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
