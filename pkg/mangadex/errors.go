package mangadex

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication is returned when the API rejects the supplied credentials.
	ErrAuthentication = errors.New("mangadex: authentication failed")
	// ErrNotLoggedIn is returned by operations that need a session before one exists.
	ErrNotLoggedIn = errors.New("mangadex: not logged in")
	// ErrNoContent is returned when a single resource does not exist (HTTP 404).
	ErrNoContent = errors.New("mangadex: no content")
	// ErrNoResults is returned when a listing finished successfully but matched nothing.
	ErrNoResults = errors.New("mangadex: no results")
)

// APIError is any unexpected, non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       []byte

	kind error
}

func newAPIError(resp *http.Response, body []byte, kind error) *APIError {
	return &APIError{StatusCode: resp.StatusCode, Body: body, kind: kind}
}

func (e *APIError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("mangadex: api error %d: %s", e.StatusCode, detail)
	}
	return fmt.Sprintf("mangadex: api error %d", e.StatusCode)
}

// Unwrap exposes ErrNoContent or ErrAuthentication when the status maps to one.
func (e *APIError) Unwrap() error {
	return e.kind
}

// Detail returns the first error detail of a JSON error body, or the raw body.
func (e *APIError) Detail() string {
	var payload struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && len(payload.Errors) > 0 {
		if payload.Errors[0].Detail != "" {
			return payload.Errors[0].Detail
		}
		return payload.Errors[0].Title
	}
	if len(e.Body) > 200 {
		return string(e.Body[:200])
	}
	return string(e.Body)
}

// TransportError is a connection-level failure: the request never produced a usable response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mangadex: transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
