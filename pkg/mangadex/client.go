// Package mangadex is a typed client for the MangaDex REST API and its at-home
// content delivery network.
package mangadex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL    = "https://api.mangadex.org"
	DefaultNetworkURL = "https://api.mangadex.network"
	DefaultUploadsURL = "https://uploads.mangadex.org"

	// DefaultRateLimit is the pause between two consecutive listing requests.
	DefaultRateLimit = 250 * time.Millisecond
	DefaultPageSize  = 100
	// MaxPageSize is the largest limit the API accepts for one listing call.
	MaxPageSize = 500
)

const userAgent = "mdex/1.0"

// Client talks to the MangaDex API. It is safe for concurrent use.
type Client struct {
	http       *http.Client
	baseURL    string
	networkURL string
	uploadsURL string
	rateLimit  time.Duration
	pageSize   int
	log        logrus.FieldLogger
	now        func() time.Time

	mu      sync.RWMutex
	session session
}

type session struct {
	token         string
	refresh       string
	authenticated bool
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithNetworkURL(u string) Option {
	return func(c *Client) { c.networkURL = strings.TrimRight(u, "/") }
}

func WithUploadsURL(u string) Option {
	return func(c *Client) { c.uploadsURL = strings.TrimRight(u, "/") }
}

// WithRateLimit sets the delay inserted between paginated requests. Zero disables it.
func WithRateLimit(d time.Duration) Option {
	return func(c *Client) { c.rateLimit = d }
}

// WithPageSize sets the listing page size, clamped to [1, MaxPageSize].
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = clampPageSize(n) }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock replaces time.Now, used to stamp handoffs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the public API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: time.Minute},
		baseURL:    DefaultBaseURL,
		networkURL: DefaultNetworkURL,
		uploadsURL: DefaultUploadsURL,
		rateLimit:  DefaultRateLimit,
		pageSize:   DefaultPageSize,
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the transport shared by API and node requests.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

type response struct {
	*http.Response
	body []byte
}

func (r *response) decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.Request.URL.Path, err)
	}
	return nil
}

// send performs one API call and reads the whole body. Relative endpoints are
// resolved against the base URL.
func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, payload any) (*response, error) {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.sessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Trace("mangadex request")

	return &response{Response: resp, body: raw}, nil
}

// wait sleeps for the rate limit delay unless ctx is done first.
func (c *Client) wait(ctx context.Context) error {
	if c.rateLimit <= 0 {
		return nil
	}
	t := time.NewTimer(c.rateLimit)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fetchEntity loads one {"data": {...}} document. 404 maps to ErrNoContent.
func (c *Client) fetchEntity(ctx context.Context, path string, params url.Values) (entity, error) {
	resp, err := c.send(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return entity{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var doc struct {
			Data entity `json:"data"`
		}
		if err := resp.decode(&doc); err != nil {
			return entity{}, err
		}
		return doc.Data, nil
	case http.StatusNotFound:
		return entity{}, newAPIError(resp.Response, resp.body, ErrNoContent)
	default:
		return entity{}, newAPIError(resp.Response, resp.body, nil)
	}
}

func includesParams(includes []string) url.Values {
	if len(includes) == 0 {
		includes = IncludeAll
	}
	return url.Values{"includes[]": includes}
}
