// Package unsplash provides the HTTP client for the Unsplash random photos
// endpoint used to fill the gallery.
package unsplash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for image API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_api_requests_total",
		Help: "Total image API requests by status",
	}, []string{"status"})

	apiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_api_request_duration_seconds",
		Help:    "Image API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_api_errors_total",
		Help: "Total image API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public Unsplash API.
	DefaultBaseURL = "https://api.unsplash.com"

	// DefaultCount is the number of photos requested per page.
	DefaultCount = 10

	// DefaultQuery is the search term photos are drawn from.
	DefaultQuery = "beach"

	// MaxCount is the largest count the random endpoint accepts.
	MaxCount = 30

	randomPath = "/photos/random/"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the image API, without the endpoint path.
	BaseURL string

	// AccessKey is sent as client_id. Empty is logged, not rejected.
	AccessKey string

	// Count of photos per request (1..MaxCount).
	Count int

	// Query is the fixed search term.
	Query string

	// UserAgent header value.
	UserAgent string

	// Timeout of the underlying HTTP client (0 disables it).
	Timeout time.Duration
}

// DefaultConfig returns the configuration the gallery ships with.
func DefaultConfig(accessKey string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		AccessKey: accessKey,
		Count:     DefaultCount,
		Query:     DefaultQuery,
		UserAgent: "infinite-gallery/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// Client fetches pages of random photos.
type Client struct {
	httpClient *http.Client
	endpoint   string
	config     Config
	logger     zerolog.Logger
}

// New creates a new image API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Count < 1 || cfg.Count > MaxCount {
		return nil, fmt.Errorf("count must be between 1 and %d (got %d)", MaxCount, cfg.Count)
	}

	if strings.TrimSpace(cfg.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	logger := logging.NewLogger(logging.ComponentClient)

	// The request is still attempted without a key; the API answers 401
	// and the pipeline shows its error element.
	if cfg.AccessKey == "" {
		apiErrorsTotal.WithLabelValues(string(ErrorClassConfigMissing)).Inc()
		logger.Error().
			Err(ErrConfigMissing).
			Str("error_class", string(ErrorClassConfigMissing)).
			Msg("Access key is not defined, set UNSPLASH_ACCESS_KEY")
	}

	params := url.Values{}
	params.Set("client_id", cfg.AccessKey)
	params.Set("count", strconv.Itoa(cfg.Count))
	params.Set("query", cfg.Query)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + randomPath + "?" + params.Encode(),
		config:   cfg,
		logger:   logger,
	}, nil
}

// RandomPhotos performs one request cycle and returns the decoded photos in
// response order. Errors are *RequestError, *NetworkError or wrap
// ErrDecodeFailed.
func (c *Client) RandomPhotos(ctx context.Context) ([]Photo, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Int("count", c.config.Count).
		Str("query", c.config.Query).
		Msg("Requesting random photos")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	apiRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErrorsTotal.WithLabelValues(string(ErrorClassRequest)).Inc()
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	photos, err := decodePhotos(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	c.logger.Debug().
		Int("photos", len(photos)).
		Dur("duration", time.Since(startTime)).
		Msg("Random photos received")

	return photos, nil
}

// Endpoint returns the full request URL, including the access key.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
