package spotify

import (
	"errors"
	"fmt"
)

// Kind is the closed set of upstream failure classifications. It is the
// contract between the classifier and every downstream consumer; new
// heuristics may refine how a Kind is chosen but never add meaning outside
// this enumeration.
type Kind int

const (
	// KindUnknown covers any error not otherwise classified, e.g. a network
	// failure before an HTTP response existed.
	KindUnknown Kind = iota

	// KindNoAccessToken means the session exists but carries no delegated token.
	KindNoAccessToken

	// KindTokenExpired means upstream explicitly reported token expiration.
	KindTokenExpired

	// KindInvalidToken is an upstream 401 for any reason other than expiration.
	KindInvalidToken

	// KindInsufficientScope is an upstream 403 due to a missing permission.
	KindInsufficientScope

	// KindPremiumRequired is an upstream 403/402 for a paid-tier feature.
	KindPremiumRequired

	// KindForbidden is an upstream 403 for any other reason.
	KindForbidden

	// KindNotFound is an upstream 404.
	KindNotFound

	// KindRateLimited is an upstream 429, carrying a retry-after hint.
	KindRateLimited

	// KindServerError is an upstream 500, 502 or 503.
	KindServerError

	// KindAPIError is any other non-2xx status, preserved for diagnostics.
	KindAPIError

	// KindParseError means the upstream response could not be parsed as expected.
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindNoAccessToken:
		return "no_access_token"
	case KindTokenExpired:
		return "token_expired"
	case KindInvalidToken:
		return "invalid_token"
	case KindInsufficientScope:
		return "insufficient_scope"
	case KindPremiumRequired:
		return "premium_required"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "upstream_server_error"
	case KindAPIError:
		return "upstream_api_error"
	case KindParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Error is the typed failure value for every upstream problem. The Kind is
// the machine contract; Message is free text for logs and user display.
type Error struct {
	Kind       Kind
	StatusCode int    // upstream HTTP status, 0 when no response existed
	Message    string
	Scope      string // missing scope, set for KindInsufficientScope
	RetryAfter int    // seconds to wait, set for KindRateLimited
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("spotify: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err is a [*Error] with the given Kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// AuthFailure reports whether err belongs to the narrow class that must
// invalidate the session: no token, expired token, or invalid token.
func AuthFailure(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case KindNoAccessToken, KindTokenExpired, KindInvalidToken:
		return true
	}
	return false
}

// errNoAccessToken builds the canonical missing-token failure.
func errNoAccessToken(cause error) *Error {
	return &Error{Kind: KindNoAccessToken, Message: "no delegated access token available", Cause: cause}
}
