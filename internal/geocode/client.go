package geocode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client queries a geocoding HTTP service.
//
// Requests are paced by a token bucket so that public instances with a usage
// policy (Nominatim allows one request per second) are not overloaded,
// however many workers share the client.
type Client struct {
	endpoint   *url.URL
	provider   Provider
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Endpoint  string
	Provider  Provider
	UserAgent string

	// MinInterval is the minimum spacing between requests; zero or
	// negative disables pacing.
	MinInterval time.Duration

	// Timeout bounds each request when HTTPClient is nil.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a geocoding client.
func NewClient(opts ClientOptions) (*Client, error) {
	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid geocoder endpoint %q", opts.Endpoint)
	}

	provider := opts.Provider
	if provider == nil {
		provider = Nominatim{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	return &Client{
		endpoint:   endpoint,
		provider:   provider,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.OrDiscard(opts.Logger),
	}, nil
}

// NewClientFromConfig creates a client from the geocoder section of the
// main configuration.
func NewClientFromConfig(cfg config.GeocoderConfig, l *slog.Logger) (*Client, error) {
	provider, err := ProviderFor(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewClient(ClientOptions{
		Endpoint:    cfg.Endpoint,
		Provider:    provider,
		UserAgent:   cfg.UserAgent,
		MinInterval: cfg.MinRequestInterval,
		Timeout:     cfg.RequestTimeout,
		Logger:      l,
	})
}

// Search resolves one query string.
//
// RETURNS:
//   - The first valid result coordinate.
//   - ErrNoResult when the service returned no usable result, or a wrapped
//     transport or status error. Callers treat every error as "not found".
func (c *Client) Search(ctx context.Context, query string) (Coordinate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Coordinate{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := *c.endpoint
	params := u.Query()
	for key, values := range c.provider.Query(query) {
		params[key] = values
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Geocode request", "provider", c.provider.Name(), "query", query,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Coordinate{}, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Coordinate{}, fmt.Errorf("failed to read geocode response: %w", err)
	}

	coords, err := c.provider.Parse(body)
	if err != nil {
		return Coordinate{}, err
	}
	if len(coords) == 0 || !coords[0].Valid() {
		return Coordinate{}, ErrNoResult
	}
	return coords[0], nil
}
