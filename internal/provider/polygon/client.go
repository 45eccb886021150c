package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market-stats/internal/model"
	"market-stats/internal/provider"
)

const (
	name = "Polygon"

	defaultBaseURL = "https://api.polygon.io"

	// Max 50k results per request
	maxLimit = 50000

	// KeyCooldown: Polygon free tier allows 5 req/min => 12s between requests per key
	KeyCooldown = 12 * time.Second

	maxRetries = 3
	retryDelay = 15 * time.Second
)

// Client fetches adjusted daily aggregates from the Polygon API, spreading
// requests over a pool of API keys.
type Client struct {
	baseURL    string
	http       *http.Client
	pool       *keyPool
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL    string
	http       *http.Client
	cooldown   time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// WithBaseURL overrides the API root (tests).
func WithBaseURL(u string) Option { return func(c *clientConfig) { c.baseURL = u } }

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *clientConfig) { c.http = h } }

// WithKeyCooldown sets the minimum delay between two requests on the same key.
func WithKeyCooldown(d time.Duration) Option { return func(c *clientConfig) { c.cooldown = d } }

// WithRetryDelay sets the wait before retrying a failed or rate limited request.
func WithRetryDelay(d time.Duration) Option { return func(c *clientConfig) { c.retryDelay = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *clientConfig) { c.logger = l } }

// New creates a Client. At least one API key is required.
func New(apiKeys []string, opts ...Option) (*Client, error) {
	var keys []string
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("polygon: at least one API key is required")
	}
	cfg := clientConfig{
		baseURL:    defaultBaseURL,
		cooldown:   KeyCooldown,
		retryDelay: retryDelay,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.http == nil {
		cfg.http = provider.NewHTTPClient(10 * time.Minute)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		http:       cfg.http,
		pool:       newKeyPool(keys, cfg.cooldown),
		retryDelay: cfg.retryDelay,
		logger:     cfg.logger,
	}, nil
}

func (c *Client) GetName() string { return name }

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Fetch returns adjusted daily closes of ticker for [from, to], following
// next_url pages. Every page request checks out a key from the pool.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (model.PriceSeries, error) {
	want := model.NewDateRange(from, to)
	if !want.Valid() {
		return nil, fmt.Errorf("polygon %s: invalid range %s", ticker, want)
	}

	series := make(model.PriceSeries, 0, want.Days())
	next := c.aggregatesURL(ticker, want)
	for next != "" {
		resp, err := c.doAggregatesRequest(ctx, ticker, next)
		if err != nil {
			return nil, err
		}
		for _, b := range resp.Results {
			day := model.Day(time.UnixMilli(b.Timestamp))
			if want.Contains(day) {
				series = append(series, model.Observation{Date: day, Price: b.Close})
			}
		}
		next = resp.NextURL
	}
	return model.Normalize(series), nil
}

// aggregatesURL builds the 1-day aggregates URL (adjusted, ascending, max limit).
func (c *Client) aggregatesURL(ticker string, want model.DateRange) string {
	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", strconv.Itoa(maxLimit))
	return fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?%s",
		c.baseURL, url.PathEscape(ticker),
		want.From.Format(model.DateFormat), want.To.Format(model.DateFormat), q.Encode())
}

// doAggregatesRequest runs one GET with retries on transport errors and 429.
func (c *Client) doAggregatesRequest(ctx context.Context, ticker, rawURL string) (*aggregatesResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: polygon %s: %v", provider.ErrUnavailable, ticker, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		key, err := c.pool.acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: polygon %s: waiting for key: %v", provider.ErrUnavailable, ticker, err)
		}
		c.logger.Debug("polygon request", "ticker", ticker, "key", keyPrefix(key), "attempt", attempt)
		result, retry, err := c.get(ctx, ticker, rawURL, key)
		c.pool.release(key)
		if err == nil {
			return result, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, ticker, rawURL, key string) (resp *aggregatesResponse, retry bool, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: polygon %s: %v", provider.ErrUnavailable, ticker, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: polygon %s: read body: %v", provider.ErrUnavailable, ticker, err)
	}
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("%w: polygon %s: rate limited (429): %s", provider.ErrUnavailable, ticker, provider.Preview(body))
	case res.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: polygon %s: status %d: %s", provider.ErrUnavailable, ticker, res.StatusCode, provider.Preview(body))
	case res.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: polygon %s: status %d: %s", provider.ErrUnavailable, ticker, res.StatusCode, provider.Preview(body))
	}

	var result aggregatesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, true, fmt.Errorf("%w: polygon %s: parse JSON: %v", provider.ErrUnavailable, ticker, err)
	}
	switch result.Status {
	case "OK", "DELAYED":
		return &result, false, nil
	case "NOT_FOUND":
		return nil, false, fmt.Errorf("%w: polygon %s", provider.ErrNoData, ticker)
	default:
		return nil, false, fmt.Errorf("%w: polygon %s: status %s %s", provider.ErrUnavailable, ticker, result.Status, result.Error)
	}
}
