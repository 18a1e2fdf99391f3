// Package upstream performs the single outbound HTTP call each provider
// adapter makes and classifies transport and status failures into
// *llm.Error values.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/utils"
)

// DefaultTimeout bounds a single upstream call. Image generation and long
// chat completions routinely take tens of seconds.
const DefaultTimeout = 5 * time.Minute

// maxLoggedBody caps how much of an upstream body is written to debug logs.
const maxLoggedBody = 512

// Client wraps an *http.Client for one provider.
type Client struct {
	provider   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client. A nil httpClient gets one with DefaultTimeout and a
// nil logger is replaced by a no-op logger.
func New(provider string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider:   provider,
		httpClient: httpClient,
		logger:     logger.With(zap.String("provider", provider)),
	}
}

// Response is a successful (2xx) upstream response with its body read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends req and reads the whole response body. Transport failures become
// ErrUnavailable and non-2xx statuses become ErrUpstream carrying the raw
// body. Nothing is retried.
func (c *Client) Do(req *http.Request) (*Response, error) {
	start := time.Now()

	c.logger.Debug("upstream request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upstream request failed",
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		return nil, llm.NewUnavailableError(c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewUnavailableError(c.provider, fmt.Errorf("reading response body: %w", err))
	}

	c.logger.Debug("upstream response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", utils.Truncate(string(body), maxLoggedBody)),
		)
		return nil, llm.NewUpstreamError(c.provider, resp.StatusCode, body)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// PostJSON marshals payload, POSTs it to url with the given headers and
// returns the response.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.Do(req)
}

// Get performs a GET with the given headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", c.provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// DecodeJSON unmarshals a 2xx body, reporting failures as ErrMalformed.
func (c *Client) DecodeJSON(resp *Response, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return llm.NewMalformedError(c.provider, resp.Body, err)
	}
	return nil
}

// Logger returns the provider-scoped logger.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}
