// Package openalex looks up work metadata in the OpenAlex catalogue.
package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/refmatch/internal/entity"
	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/metrics"
)

const (
	// BaseURL is the OpenAlex API.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	// RateLimit is the documented 10 requests per second.
	RateLimit = 10.0

	// searchPageSize is how many title hits are screened for journal and
	// author filters.
	searchPageSize = 10
)

// doiEscaper escapes the characters of a DOI that would end the URL path.
var doiEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

var (
	// ErrNotFound indicates no work matched the lookup.
	ErrNotFound = errors.New("not found in OpenAlex")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("OpenAlex rate limit exceeded")

	// ErrAPIError indicates a general API error.
	ErrAPIError = errors.New("OpenAlex API error")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with OpenAlex")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from OpenAlex")
)

// Work is the metadata of one catalogue entry.
type Work struct {
	ID           string   `json:"id"`
	DOI          string   `json:"doi,omitempty"`
	Title        string   `json:"title"`
	Year         int      `json:"publication_year,omitempty"`
	Journal      string   `json:"journal,omitempty"`
	Type         string   `json:"type,omitempty"`
	Authors      []string `json:"authors,omitempty"`
	CitedByCount int      `json:"cited_by_count"`
}

type apiWork struct {
	ID              string `json:"id"`
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	DisplayName     string `json:"display_name"`
	PublicationYear int    `json:"publication_year"`
	Type            string `json:"type"`
	CitedByCount    int    `json:"cited_by_count"`
	PrimaryLocation *struct {
		Source *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

func (w apiWork) toWork() Work {
	work := Work{
		ID:           w.ID,
		DOI:          entity.CanonicalDOI(w.DOI),
		Title:        w.Title,
		Year:         w.PublicationYear,
		Type:         w.Type,
		CitedByCount: w.CitedByCount,
	}
	if work.Title == "" {
		work.Title = w.DisplayName
	}
	if loc := w.PrimaryLocation; loc != nil && loc.Source != nil {
		work.Journal = loc.Source.DisplayName
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			work.Authors = append(work.Authors, a.Author.DisplayName)
		}
	}
	return work
}

// Client is a rate-limited OpenAlex client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMailto identifies the caller for the polite pool.
func WithMailto(email string) ClientOption {
	return func(c *Client) { c.mailto = email }
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewClient creates an OpenAlex client.
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

// LookupByDOI fetches the work registered under doi.
func (c *Client) LookupByDOI(ctx context.Context, doi string) (*Work, error) {
	canonical := entity.CanonicalDOI(doi)
	if canonical == "" {
		return nil, fmt.Errorf("%w: malformed DOI %q", ErrNotFound, doi)
	}

	var w apiWork
	if err := c.get(ctx, "/works/doi:"+doiEscaper.Replace(canonical), nil, &w); err != nil {
		return nil, err
	}
	work := w.toWork()
	return &work, nil
}

// SearchByTitle returns the first search hit for title whose journal and
// first author contain the given filters (case-insensitively). Empty
// filters match anything.
func (c *Client) SearchByTitle(ctx context.Context, title, journal, author string) (*Work, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrNotFound)
	}

	params := url.Values{}
	params.Set("search", title)
	params.Set("per-page", strconv.Itoa(searchPageSize))

	var page struct {
		Results []apiWork `json:"results"`
	}
	if err := c.get(ctx, "/works", params, &page); err != nil {
		return nil, err
	}

	for _, w := range page.Results {
		work := w.toWork()
		if !containsFold(work.Journal, journal) {
			continue
		}
		if author != "" && !slicesContainFold(work.Authors, author) {
			continue
		}
		return &work, nil
	}
	return nil, fmt.Errorf("%w: no result for %q", ErrNotFound, title)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("openalex", "network_error").Inc()
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues("openalex", strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidResponse, path, err)
	}
	logging.FromContext(ctx).Debug("OpenAlex request", zap.String("path", path))
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func slicesContainFold(list []string, sub string) bool {
	for _, s := range list {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the lookup found nothing.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUpstream reports whether err came from the API or the network.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrAPIError) || errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetworkError) || errors.Is(err, ErrInvalidResponse)
}
