// Package apiclient is the generic REST client for the Pet Connect API.
//
// Every response is wrapped in an Envelope; the helpers return its data field.
// When a client is bound to a browser's storage it sends that browser's access
// token as a bearer header, and on any 401 it clears the stored access token
// and session snapshot so the next guarded request goes to the login page.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/petconnect/web-gateway/internal/api/metrics"
	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/ports"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 4 << 20
)

// Config holds the backend location and per-request timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Envelope is the backend's response wrapper.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Client sends requests to the backend. The zero value is not usable; use New.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	storage ports.Storage
	log     zerolog.Logger

	onUnauthorized func()
}

// New returns an unbound client. Bind it to a browser with WithStorage.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// WithStorage returns a copy of c that reads the bearer token from, and applies
// the 401 policy to, st.
func (c *Client) WithStorage(st ports.Storage) *Client {
	cp := *c
	cp.storage = st
	return &cp
}

// OnUnauthorized returns a copy of c that calls fn after the 401 policy has
// cleared the stored credentials.
func (c *Client) OnUnauthorized(fn func()) *Client {
	cp := *c
	cp.onUnauthorized = fn
	return &cp
}

// Get issues GET path?query.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return send[T](ctx, c, http.MethodGet, path, query, nil, "")
}

// Post issues POST path?query with body encoded as JSON. A nil body sends no payload.
func Post[T any](ctx context.Context, c *Client, path string, body any, query url.Values) (T, error) {
	r, err := jsonBody(body)
	if err != nil {
		var zero T
		return zero, err
	}
	return send[T](ctx, c, http.MethodPost, path, query, r, mimeJSON)
}

// Put issues PUT path with body encoded as JSON.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	r, err := jsonBody(body)
	if err != nil {
		var zero T
		return zero, err
	}
	return send[T](ctx, c, http.MethodPut, path, nil, r, mimeJSON)
}

// Delete issues DELETE path.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return send[T](ctx, c, http.MethodDelete, path, nil, nil, "")
}

// Upload posts content as the multipart form field "file".
func Upload[T any](ctx context.Context, c *Client, path, filename string, content io.Reader) (T, error) {
	var zero T
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return zero, fmt.Errorf("apiclient: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return zero, fmt.Errorf("apiclient: copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return zero, fmt.Errorf("apiclient: close multipart: %w", err)
	}
	return send[T](ctx, c, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
}

const mimeJSON = "application/json"

func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: encode body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, body io.Reader, contentType string) (T, error) {
	var zero T

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return zero, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return zero, &APIError{Message: err.Error(), Status: http.StatusInternalServerError, Timestamp: now()}
	}
	defer resp.Body.Close()
	metrics.BackendRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return zero, &APIError{Message: fmt.Sprintf("read response: %v", err), Status: http.StatusBadGateway, Timestamp: now()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, c.failure(ctx, resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}

	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, &APIError{Message: fmt.Sprintf("invalid response envelope: %v", err), Status: http.StatusBadGateway, Timestamp: now()}
	}
	return env.Data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", mimeJSON)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.storage != nil {
		token, found, err := c.storage.GetItem(ctx, domain.StorageKeyAccessToken)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Msg("could not read access token, sending request without it")
		case found && token != "":
			(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)
		}
	}
	return req, nil
}

// failure converts a non-2xx response into an APIError and applies the 401
// policy to the bound storage.
func (c *Client) failure(ctx context.Context, status int, raw []byte) error {
	apiErr := &APIError{Status: status, Timestamp: now()}

	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
		if env.Timestamp != "" {
			apiErr.Timestamp = env.Timestamp
		}
	} else {
		apiErr.Message = fmt.Sprintf("request failed with status code %d", status)
	}

	if errors.Is(apiErr, domain.ErrUnauthorized) {
		c.clearCredentials(ctx)
	}
	return apiErr
}

func (c *Client) clearCredentials(ctx context.Context) {
	if c.storage == nil {
		return
	}
	for _, key := range []string{domain.StorageKeyAccessToken, domain.StorageKeySnapshot} {
		if err := c.storage.RemoveItem(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to clear credentials after 401")
		}
	}
	c.log.Info().Msg("backend rejected credentials, stored access token cleared")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
