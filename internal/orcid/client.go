// Package orcid fetches researcher profiles from the public ORCID API.
package orcid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/metrics"
)

const (
	// BaseURL is the public ORCID API.
	BaseURL = "https://pub.orcid.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// RateLimit stays under the public API's 12 requests per second.
	RateLimit = 8.0

	// maxRecordBytes bounds the record document read.
	maxRecordBytes = 32 << 20
)

var idPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ValidateID checks the XXXX-XXXX-XXXX-XXXX form of an ORCID iD and returns
// it trimmed, with a lower-case check digit x upper-cased.
func ValidateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "https://orcid.org/")
	if strings.HasSuffix(id, "x") {
		id = id[:len(id)-1] + "X"
	}
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q (want XXXX-XXXX-XXXX-XXXX)", ErrInvalidID, id)
	}
	return id, nil
}

// Client is a rate-limited HTTP client for the ORCID public API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets a bearer token for member or read-public access.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a new ORCID client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, id string) error {
	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, ORCID: id}
	}
	return nil
}

// FetchProfile fetches the record for id and maps its works. A record that
// does not exist yields an empty profile, not an error.
func (c *Client) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	id, err := ValidateID(id)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3.0/"+id+"/record", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("orcid", "network_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues("orcid", fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotFound {
		logger.Info("ORCID record not found", zap.String("orcid", id))
		return &Profile{ORCID: id, Publications: []Publication{}}, nil
	}
	if err := checkHTTPErrors(resp, id); err != nil {
		return nil, err
	}

	var rec apiRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRecordBytes)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: parsing record: %v", ErrInvalidResponse, err)
	}

	profile := mapRecord(id, &rec)
	logger.Debug("fetched ORCID profile",
		zap.String("orcid", id),
		zap.Int("publications", profile.Count))
	return profile, nil
}
