package server

import (
	"encoding/json"
	"net/http"

	"github.com/tempoapp/tempo/internal/spotify"
)

// Envelope statuses. Exactly one of the two appears in every response.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorBody is the machine-readable error block inside a failure envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope is the uniform JSON body for every API response. The embedded
// status code always equals the HTTP status the envelope is written with,
// so clients can rely on either without cross-checking.
//
// Envelopes are built through [Success], [Failure] and [FromUpstream]
// rather than composed by hand, which keeps the status/code/body trio
// consistent at every call site.
type Envelope struct {
	StatusCode int        `json:"status_code"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	Data       any        `json:"data"`
	Err        *ErrorBody `json:"error,omitempty"`
}

// Success builds a 200 envelope carrying data. A nil data value serializes
// as an explicit "data": null, used when upstream reported no content; every
// success envelope carries a data key.
func Success(message string, data any) *Envelope {
	return &Envelope{
		StatusCode: http.StatusOK,
		Status:     StatusSuccess,
		Message:    message,
		Data:       data,
	}
}

// Created builds a 201 envelope carrying the created resource.
func Created(message string, data any) *Envelope {
	return &Envelope{
		StatusCode: http.StatusCreated,
		Status:     StatusSuccess,
		Message:    message,
		Data:       data,
	}
}

// Failure builds an error envelope with the given HTTP status and error code.
func Failure(statusCode int, code, message string) *Envelope {
	return &Envelope{
		StatusCode: statusCode,
		Status:     StatusError,
		Message:    message,
		Err:        &ErrorBody{Code: code, Message: message},
	}
}

// BadRequest builds a 400 envelope for a client-side validation failure.
func BadRequest(message string) *Envelope {
	return Failure(http.StatusBadRequest, "bad_request", message)
}

// NotFound builds a 404 envelope.
func NotFound(message string) *Envelope {
	return Failure(http.StatusNotFound, "not_found", message)
}

// Unauthorized builds a 401 envelope with the given error code. API routes
// answer missing or dead tokens this way and never redirect.
func Unauthorized(code, message string) *Envelope {
	return Failure(http.StatusUnauthorized, code, message)
}

// WithDetail attaches a key to the envelope's error details block.
// Calling it on a success envelope is a no-op.
func (e *Envelope) WithDetail(key string, value any) *Envelope {
	if e.Err == nil {
		return e
	}
	if e.Err.Details == nil {
		e.Err.Details = map[string]any{}
	}
	e.Err.Details[key] = value
	return e
}

// FromUpstream maps a classified upstream failure to its response envelope.
// This is the single place the error taxonomy meets HTTP status codes.
func FromUpstream(err *spotify.Error) *Envelope {
	code := err.Kind.String()

	switch err.Kind {
	case spotify.KindNoAccessToken, spotify.KindInvalidToken, spotify.KindTokenExpired:
		return Unauthorized(code, err.Message)
	case spotify.KindPremiumRequired:
		return Failure(http.StatusPaymentRequired, code, err.Message)
	case spotify.KindInsufficientScope:
		return Failure(http.StatusForbidden, code, err.Message).WithDetail("required_scope", err.Scope)
	case spotify.KindForbidden:
		return Failure(http.StatusForbidden, code, err.Message)
	case spotify.KindNotFound:
		return Failure(http.StatusNotFound, code, err.Message)
	case spotify.KindRateLimited:
		return Failure(http.StatusTooManyRequests, code, err.Message).WithDetail("retry_after", err.RetryAfter)
	case spotify.KindServerError, spotify.KindAPIError:
		return Failure(http.StatusBadGateway, code, err.Message)
	default:
		return Failure(http.StatusInternalServerError, code, err.Message)
	}
}

// Write serializes the envelope to the response with its status code.
func (e *Envelope) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	return json.NewEncoder(w).Encode(e)
}
