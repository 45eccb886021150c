package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market-stats/internal/model"
	"market-stats/internal/provider"
)

const name = "Yahoo"

var (
	defaultHosts    = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}
	defaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// Client fetches daily bars from the public Yahoo Finance chart API.
type Client struct {
	hosts    []string
	http     *http.Client
	backoffs []time.Duration
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs replaces the Yahoo hosts, tried in order on every attempt.
func WithBaseURLs(urls ...string) Option {
	return func(c *Client) {
		if len(urls) > 0 {
			c.hosts = urls
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithBackoffs sets the delays between retry rounds. An empty list disables retries.
func WithBackoffs(b ...time.Duration) Option {
	return func(c *Client) { c.backoffs = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client with the default hosts and retry schedule.
func New(opts ...Option) *Client {
	c := &Client{
		hosts:    defaultHosts,
		http:     provider.NewHTTPClient(time.Minute),
		backoffs: defaultBackoffs,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) GetName() string { return name }

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Fetch returns adjusted close prices (close when no adjusted series is sent)
// for the days in [from, to]. Each bar is dated by its UTC calendar day.
func (c *Client) Fetch(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	want := model.NewDateRange(from, to)
	if !want.Valid() {
		return nil, fmt.Errorf("yahoo %s: invalid range %s", symbol, want)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoffs); attempt++ {
		for _, host := range c.hosts {
			resp, err := c.fetchChart(ctx, host, symbol, want)
			if err == nil {
				return parseChart(resp, want)
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: yahoo %s: %v", provider.ErrUnavailable, symbol, ctx.Err())
			}
			if !retryable(err) {
				return nil, err
			}
			lastErr = err
			c.logger.Debug("yahoo request failed", "symbol", symbol, "host", host, "attempt", attempt+1, "error", err)
		}
		if attempt < len(c.backoffs) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: yahoo %s: %v", provider.ErrUnavailable, symbol, ctx.Err())
			case <-time.After(c.backoffs[attempt]):
			}
		}
	}
	return nil, lastErr
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, permanent := err.(*permanentError)
	return !permanent
}

func (c *Client) fetchChart(ctx context.Context, host, symbol string, want model.DateRange) (*chartResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v8/finance/chart/%s", strings.TrimRight(host, "/"), url.PathEscape(symbol)))
	if err != nil {
		return nil, &permanentError{fmt.Errorf("parse URL: %w", err)}
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(want.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(want.To.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo %s: %v", provider.ErrUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo %s: read body: %v", provider.ErrUnavailable, symbol, err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		desc := provider.Preview(body)
		if decodeErr == nil && chart.Chart.Error != nil {
			desc = chart.Chart.Error.Description
		}
		return nil, &permanentError{fmt.Errorf("%w: yahoo %s: %s", provider.ErrNoData, symbol, desc)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: yahoo %s returned %d: %s", provider.ErrUnavailable, symbol, resp.StatusCode, provider.Preview(body))
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: yahoo %s: decode: %v; body: %s", provider.ErrUnavailable, symbol, decodeErr, provider.Preview(body))
	case chart.Chart.Error != nil:
		return nil, &permanentError{fmt.Errorf("%w: yahoo %s: %s", provider.ErrNoData, symbol, chart.Chart.Error.Description)}
	}
	return &chart, nil
}

// parseChart extracts the price column and keeps the bars inside want.
func parseChart(chart *chartResponse, want model.DateRange) (model.PriceSeries, error) {
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}
	res := chart.Chart.Result[0]
	if len(res.Timestamp) == 0 {
		return nil, nil
	}

	var prices []*float64
	if len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) == len(res.Timestamp) {
		prices = res.Indicators.AdjClose[0].AdjClose
	} else if len(res.Indicators.Quote) > 0 && len(res.Indicators.Quote[0].Close) == len(res.Timestamp) {
		prices = res.Indicators.Quote[0].Close
	} else {
		return nil, &permanentError{fmt.Errorf("%w: yahoo %s: no usable price column", provider.ErrNoData, res.Meta.Symbol)}
	}

	series := make(model.PriceSeries, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		p := prices[i]
		if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
			continue
		}
		day := model.Day(time.Unix(ts, 0))
		if !want.Contains(day) {
			continue
		}
		series = append(series, model.Observation{Date: day, Price: *p})
	}
	return model.Normalize(series), nil
}
