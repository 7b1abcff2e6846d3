package domain

import "errors"

// Sentinel errors for the chat domain. These provide consistent, checkable
// errors for the failure modes a session can surface to its client.
var (
	// ErrUnauthorized means the credential was missing or invalid. It is the
	// only error that terminates a session.
	ErrUnauthorized = errors.New("invalid or missing credential")

	// ErrForbidden means the caller is authenticated but not permitted to
	// perform this action. The session stays open.
	ErrForbidden = errors.New("action not permitted")

	// ErrNotFound means the referenced club or message does not exist.
	ErrNotFound = errors.New("requested resource not found")

	// ErrValidation means the input was malformed (empty body, bad ids).
	ErrValidation = errors.New("invalid input")

	// ErrExpired means the edit window for the message has elapsed.
	ErrExpired = errors.New("edit window elapsed")

	// ErrUnavailable means a downstream store timed out or failed.
	ErrUnavailable = errors.New("store unavailable")
)

// ErrorCode maps a domain error to its wire code. Unknown errors are
// reported as "unavailable" so internal details never leak to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "unavailable"
	}
}
