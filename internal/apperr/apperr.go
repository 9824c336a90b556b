// Package apperr defines the error kinds returned by the forum services and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidOperation
	KindAlreadyAccepted
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindAlreadyAccepted:
		return "already_accepted"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation}
	ErrAlreadyAccepted  = &Error{Kind: KindAlreadyAccepted}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrInternal         = &Error{Kind: KindInternal}
)

func Unauthorized(msg string) error     { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) error        { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error         { return &Error{Kind: KindNotFound, Message: msg} }
func InvalidOperation(msg string) error { return &Error{Kind: KindInvalidOperation, Message: msg} }
func AlreadyAccepted(msg string) error  { return &Error{Kind: KindAlreadyAccepted, Message: msg} }
func RateLimited(msg string) error      { return &Error{Kind: KindRateLimited, Message: msg} }

// Internal wraps a persistence or unexpected failure. The message is what
// the client sees; err is kept for logging.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// FromDB converts a gorm error: a missing row becomes NotFound with the
// given message, anything else Internal.
func FromDB(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFoundMsg)
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("database error", err)
}

func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidOperation, KindAlreadyAccepted:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client. Internal causes
// are never exposed.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal server error"
}
