package provider

import (
	"context"
	"errors"
	"time"

	"market-stats/internal/model"
)

var (
	// ErrUnavailable wraps network, HTTP status and decoding failures of a provider.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNoData is returned when the provider answered but had no prices at all.
	ErrNoData = errors.New("no data")
)

// Provider is the abstraction used by the application when accessing a market
// data source. Implementations must be safe for concurrent use.
type Provider interface {
	// Fetch returns daily prices of symbol for the inclusive day range [from, to].
	// An empty series with a nil error means the range has no trading days.
	Fetch(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)
	GetName() string
	Close() error
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)

func (f Func) Fetch(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	return f(ctx, symbol, from, to)
}

func (Func) GetName() string { return "func" }

func (Func) Close() error { return nil }
