package spotify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// defaultRetryAfter is the wait hint used when a 429 body omits one.
const defaultRetryAfter = 60

// errorBody is the shape Spotify uses for error responses. Regular API
// errors nest under "error"; the accounts service returns a flat pair.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
	ErrorDescription string `json:"error_description"`
	// Pointer so a body saying retry_after 0 stays distinguishable from a
	// body with no retry_after at all.
	RetryAfter *int `json:"retry_after"`
}

// message returns the most specific human-readable text in the body.
func (b errorBody) message() string {
	if b.Error.Message != "" {
		return b.Error.Message
	}
	if b.Error.Reason != "" {
		return b.Error.Reason
	}
	return b.ErrorDescription
}

// Classify maps an upstream status code and response body to exactly one
// [*Error]. It is a pure function: no I/O, same inputs always produce the
// same classification.
//
// requiredScope is the permission the calling endpoint needs; it is carried
// into an insufficient-scope classification so the caller can name the
// missing scope. Pass "" when unknown.
//
// Upstream error bodies are unreliable free text, so 401 and 403 handling
// matches substrings in precedence order. The result is best effort, never
// a guaranteed-correct oracle.
func Classify(status int, body []byte, requiredScope string) *Error {
	var parsed errorBody
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return &Error{
				Kind:       KindParseError,
				StatusCode: status,
				Message:    fmt.Sprintf("unparseable error response (status %d)", status),
				Cause:      err,
			}
		}
	}

	msg := parsed.message()
	lower := strings.ToLower(msg)

	switch status {
	case 401:
		if strings.Contains(lower, "token expired") || strings.Contains(lower, "access token expired") {
			return &Error{Kind: KindTokenExpired, StatusCode: status, Message: orDefault(msg, "access token expired")}
		}
		return &Error{Kind: KindInvalidToken, StatusCode: status, Message: orDefault(msg, "invalid access token")}

	case 402:
		return &Error{Kind: KindPremiumRequired, StatusCode: status, Message: orDefault(msg, "premium subscription required")}

	case 403:
		if strings.Contains(lower, "scope") {
			scope := requiredScope
			if scope == "" {
				scope = "unknown"
			}
			return &Error{
				Kind:       KindInsufficientScope,
				StatusCode: status,
				Message:    fmt.Sprintf("missing required scope %s: %s", scope, orDefault(msg, "insufficient client scope")),
				Scope:      scope,
			}
		}
		if strings.Contains(lower, "premium") || strings.Contains(lower, "subscription") {
			return &Error{Kind: KindPremiumRequired, StatusCode: status, Message: orDefault(msg, "premium subscription required")}
		}
		return &Error{Kind: KindForbidden, StatusCode: status, Message: orDefault(msg, "forbidden")}

	case 404:
		return &Error{Kind: KindNotFound, StatusCode: status, Message: orDefault(msg, "resource not found")}

	case 429:
		retryAfter := defaultRetryAfter
		if parsed.RetryAfter != nil && *parsed.RetryAfter >= 0 {
			retryAfter = *parsed.RetryAfter
		}
		return &Error{
			Kind:       KindRateLimited,
			StatusCode: status,
			Message:    fmt.Sprintf("rate limited, retry after %d seconds", retryAfter),
			RetryAfter: retryAfter,
		}

	case 500, 502, 503:
		return &Error{Kind: KindServerError, StatusCode: status, Message: orDefault(msg, "upstream server error")}
	}

	return &Error{
		Kind:       KindAPIError,
		StatusCode: status,
		Message:    orDefault(msg, fmt.Sprintf("unexpected upstream status %d", status)),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
