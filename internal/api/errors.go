// Package api provides an HTTP client for the church finance service with
// bearer authentication, retry of idempotent requests, and error
// classification.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrValidation   = errors.New("api: validation failed")
	ErrThrottled    = errors.New("api: throttled")
	ErrServerError  = errors.New("api: server error")

	// ErrTransport marks failures where no HTTP response was received.
	ErrTransport = errors.New("api: service unreachable")
)

// APIError wraps a sentinel error with the HTTP status code, the request ID
// and the server-supplied detail.
type APIError struct {
	StatusCode int
	RequestID  string
	// Message is the human-readable detail from the response body, or the
	// raw body when it carried no detail field.
	Message string
	Err     error // sentinel, for errors.Is()

	detail bool
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Detail returns the server-supplied detail, or "" when the response did not
// carry one.
func (e *APIError) Detail() string {
	if !e.detail {
		return ""
	}

	return e.Message
}

// newAPIError builds an APIError from an error response body.
func newAPIError(status int, requestID string, body []byte) *APIError {
	e := &APIError{
		StatusCode: status,
		RequestID:  requestID,
		Err:        classifyStatus(status),
	}

	if d := parseDetail(body); d != "" {
		e.Message = d
		e.detail = true

		return e
	}

	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	return e
}

// validationIssue is one entry of a 422 detail list.
type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts the "detail" field of an error body. The detail is
// either a string or a list of validation issues.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			if field := issueField(is.Loc); field != "" {
				parts = append(parts, field+": "+is.Msg)
			} else {
				parts = append(parts, is.Msg)
			}
		}

		return strings.Join(parts, "; ")
	}

	if string(envelope.Detail) == "null" {
		return ""
	}

	return string(envelope.Detail)
}

// issueField returns the last element of a validation location, which names
// the offending field.
func issueField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}

	return fmt.Sprint(loc[len(loc)-1])
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isIdempotent reports whether a request with method may be sent twice.
// POST is never retried, so a create cannot be duplicated.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}
