// Package grobid extracts reference entities with a GROBID citation parsing service.
package grobid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/reference"
)

const (
	// DefaultBaseURL is where a local GROBID container listens.
	DefaultBaseURL = "http://localhost:8070"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds the TEI document read for one citation.
	maxResponseBytes = 1 << 20
)

// ErrUnavailable indicates the service did not report itself alive.
var ErrUnavailable = errors.New("GROBID service unavailable")

// Client calls the GROBID processCitation endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a GROBID client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name.
func (c *Client) Name() string { return "grobid" }

// ConcurrencySafe reports that the client may be shared across goroutines.
func (c *Client) ConcurrencySafe() bool { return true }

// IsAvailable checks the isalive endpoint.
func (c *Client) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "true" {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Extract parses one citation string.
func (c *Client) Extract(ctx context.Context, text string) (reference.EntityBag, error) {
	form := url.Values{}
	form.Set("citations", text)
	form.Set("consolidateCitations", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/processCitation",
		strings.NewReader(form.Encode()))
	if err != nil {
		return reference.EntityBag{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("grobid", "network_error").Inc()
		return reference.EntityBag{}, fmt.Errorf("calling GROBID: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues("grobid", fmt.Sprint(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return reference.EntityBag{}, nil
	case resp.StatusCode != http.StatusOK:
		return reference.EntityBag{}, fmt.Errorf("GROBID returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reference.EntityBag{}, fmt.Errorf("reading GROBID response: %w", err)
	}
	return ParseTEI(data)
}
