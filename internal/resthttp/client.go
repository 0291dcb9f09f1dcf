// Package resthttp adapts the catalog REST API to the Transport interface the
// cache engine's domain flows consume. The engine itself treats the transport
// as an opaque async call returning data or a structured error.
package resthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// APIError is a structured rejection reported by the server. It satisfies the
// UserMessage contract the mutation executor uses for failure signals.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the server-reported message suitable for display.
func (e *APIError) UserMessage() string { return e.Message }

// Config holds the transport settings.
type Config struct {
	// BaseURL is the root of the catalog API, e.g. "https://api.example.com/v1".
	BaseURL string `yaml:"base_url"`

	// RequestTimeout caps a single HTTP round-trip. Zero means 10s.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RetryMaxElapsed caps the total time spent retrying idempotent reads.
	// Zero means 5s.
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed"`
}

// Client speaks JSON over HTTP to the catalog API. Reads are retried with
// exponential backoff; writes are attempted exactly once, since the mutation
// executor settles failed mutations rather than retrying them.
type Client struct {
	base            *url.URL
	httpClient      *http.Client
	retryMaxElapsed time.Duration
	logger          zerolog.Logger
}

// NewClient creates a transport client for the given API root.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("resthttp: BaseURL must not be empty")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("resthttp: parse base url: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retryMax := cfg.RetryMaxElapsed
	if retryMax == 0 {
		retryMax = 5 * time.Second
	}

	return &Client{
		base:            base,
		httpClient:      &http.Client{Timeout: timeout},
		retryMaxElapsed: retryMax,
		logger:          logger.With().Str("component", "rest_transport").Logger(),
	}, nil
}

// Request performs one API call and returns the raw response body. GETs are
// retried on transport failures and 5xx responses; 4xx rejections are
// permanent. Non-GET methods are never retried.
func (c *Client) Request(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	if method != http.MethodGet {
		return c.do(ctx, method, path, params, body)
	}

	var out []byte
	operation := func() error {
		data, err := c.do(ctx, method, path, params, body)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			c.logger.Debug().Err(err).Str("path", path).Msg("retrying read")
			return err
		}
		out = data
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("resthttp: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("resthttp: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resthttp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("resthttp: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// decodeAPIError extracts the server's error message from a {"message": ...}
// payload, falling back to the HTTP status text.
func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{StatusCode: status, Message: payload.Message}
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}
