// Package apperr defines the error kinds shared by the upstream client, the
// source adapters and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of where it was raised.
type Kind string

const (
	KindNotFound                Kind = "NOT_FOUND"
	KindConflict                Kind = "CONFLICT"
	KindValidation              Kind = "VALIDATION"
	KindUpstreamUnavailable     Kind = "UPSTREAM_UNAVAILABLE"
	KindUnauthorized            Kind = "UNAUTHORIZED"
	KindForbidden               Kind = "FORBIDDEN"
	KindNotificationSendFailure Kind = "NOTIFICATION_SEND_FAILURE"
	KindTooManyRequests         Kind = "TOO_MANY_REQUESTS"
	KindInternal                Kind = "INTERNAL"
)

// Error is a classified error. Upstream and Status are set when the error was
// produced by a downstream call.
type Error struct {
	Kind     Kind
	Message  string
	Field    string
	Upstream string
	Status   int
	Details  map[string]any
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Upstream != "" {
		msg = fmt.Sprintf("%s: %s", e.Upstream, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an entity that already exists.
func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// Validation reports a rejected input value.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Unavailable reports an unreachable or failing upstream.
func Unavailable(upstream string, status int, err error) *Error {
	msg := "upstream unavailable"
	if status > 0 {
		msg = fmt.Sprintf("upstream returned %d", status)
	}
	return &Error{Kind: KindUpstreamUnavailable, Upstream: upstream, Status: status, Message: msg, Err: err}
}

// Unauthorized reports a missing or invalid caller credential.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports a caller lacking a required authority.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// TooManyRequests reports a caller over its rate limit.
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// NotificationFailure wraps an email provider error. The provider error stays
// reachable through errors.Is and errors.As.
func NotificationFailure(username string, err error) *Error {
	return &Error{
		Kind:    KindNotificationSendFailure,
		Message: fmt.Sprintf("failed to send notification to %s", username),
		Err:     err,
	}
}

// Wrap attaches a kind to an arbitrary error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// HTTPStatus maps an error to the status returned to callers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable, KindNotificationSendFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
