package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"market-stats/internal/asset"
	"market-stats/internal/cache"
	"market-stats/internal/model"
	"market-stats/internal/provider"
)

const (
	DefaultMaxWorkers   = 6
	DefaultFetchTimeout = 2 * time.Minute
)

// ErrInvalidRange rejects a LoadAssets call whose range cannot be served.
var ErrInvalidRange = errors.New("invalid range")

// Loader fills cache gaps from a provider and assembles assets.
type Loader struct {
	store        *cache.Store
	provider     provider.Provider
	maxWorkers   int
	fetchTimeout time.Duration
	heartbeat    time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxWorkers bounds the number of concurrent instrument fetches.
func WithMaxWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxWorkers = n
		}
	}
}

// WithFetchTimeout bounds the time spent fetching one instrument. 0 disables it.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) { l.fetchTimeout = d }
}

// WithHeartbeat logs progress every d while fetches run. 0 disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(l *Loader) { l.heartbeat = d }
}

// WithClock sets the clock used to reject ranges ending in the future.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader reading and writing store and fetching from p.
func NewLoader(store *cache.Store, p provider.Provider, opts ...Option) *Loader {
	l := &Loader{
		store:        store,
		provider:     p,
		maxWorkers:   DefaultMaxWorkers,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// outcome is the per-instrument slot written by exactly one task.
type outcome struct {
	asset        *asset.Asset
	diag         *Diagnostic
	observations int // fetched
}

// LoadAssets returns one asset per instrument covering at least [start, end].
//
// Cached days are reused; only missing sub-ranges (plus the trailing refresh
// window) are fetched, at most MaxWorkers instruments at a time. A failed
// instrument is served from its cache when it has one and dropped otherwise,
// with a Diagnostic either way. Only an invalid range is returned as an error.
func (l *Loader) LoadAssets(ctx context.Context, instruments []model.Instrument, start, end time.Time) (*Result, error) {
	start, end = model.Day(start), model.Day(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange,
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}
	if today := model.Day(l.now()); end.After(today) {
		return nil, fmt.Errorf("%w: end %s is in the future", ErrInvalidRange, end.Format(model.DateFormat))
	}

	slots := make([]outcome, len(instruments))
	prog := &progress{total: len(instruments)}
	if l.heartbeat > 0 {
		hbCtx, stop := context.WithCancel(ctx)
		defer stop()
		go runHeartbeat(hbCtx, l.heartbeat, prog, l.logger)
	}

	var g errgroup.Group
	g.SetLimit(l.maxWorkers)
	var jobs int
	for i, inst := range instruments {
		entry, _ := l.store.Entry(inst.Symbol)
		missing := cache.MissingRanges(entry.Coverage, start, end, l.store.RefreshDays())
		if len(missing) == 0 {
			l.logger.Debug("cache hit", "symbol", inst.Symbol)
			slots[i] = outcome{asset: asset.New(inst, entry.Series)}
			prog.done.Add(1)
			continue
		}
		jobs++
		g.Go(func() error {
			slots[i] = l.loadOne(ctx, inst, entry, missing)
			prog.fetched.Add(int64(slots[i].observations))
			if slots[i].diag != nil {
				prog.failed.Add(1)
			}
			prog.done.Add(1)
			return nil
		})
	}
	if jobs > 0 {
		l.logger.Info("instruments to fetch", "jobs", jobs, "cached", len(instruments)-jobs, "workers", l.maxWorkers)
	}
	_ = g.Wait()

	res := &Result{}
	for _, s := range slots {
		if s.diag != nil {
			res.Diagnostics = append(res.Diagnostics, *s.diag)
		}
		if s.asset != nil {
			res.Assets = append(res.Assets, s.asset)
		}
	}
	l.logger.Info("load done", "assets", len(res.Assets), "failed", len(res.Diagnostics), "observations", prog.fetched.Load())
	if len(res.Diagnostics) > 0 {
		l.logger.Info("load failed", "count", len(res.Diagnostics), "reasons", joinFailedReasons(res.Diagnostics))
	}
	return res, nil
}

// loadOne fetches every missing range of inst in order. Any failure discards
// what was fetched so the cache file is left as it was.
func (l *Loader) loadOne(ctx context.Context, inst model.Instrument, entry cache.Entry, missing []model.DateRange) outcome {
	if l.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
	}

	var fetched model.PriceSeries
	for _, r := range missing {
		s, err := l.provider.Fetch(ctx, inst.Symbol, r.From, r.To)
		if err != nil {
			return l.fail(inst, entry, r, err)
		}
		l.logger.Debug("range fetched", "symbol", inst.Symbol, "range", r.String(), "observations", len(s))
		fetched = append(fetched, s...)
	}
	if len(fetched) == 0 && len(entry.Series) == 0 {
		span := model.NewDateRange(missing[0].From, missing[len(missing)-1].To)
		return l.fail(inst, entry, span, fmt.Errorf("%w: %s returned nothing for %s", provider.ErrNoData, l.provider.GetName(), inst.Symbol))
	}

	settled, _ := l.store.SettledThrough(entry)
	merged := cache.Merge(entry.Series, fetched, settled)
	covered := append(append([]model.DateRange(nil), entry.Coverage...), missing...)
	if err := l.store.Write(inst.Symbol, merged, covered...); err != nil {
		l.logger.Warn("cache write failed", "symbol", inst.Symbol, "error", err)
	}
	l.logger.Info("fetch ok", "symbol", inst.Symbol, "ranges", len(missing), "observations", len(fetched))
	return outcome{asset: asset.New(inst, merged), observations: len(fetched)}
}

func (l *Loader) fail(inst model.Instrument, entry cache.Entry, r model.DateRange, err error) outcome {
	d := &Diagnostic{
		Symbol:   inst.Symbol,
		Range:    r,
		Reason:   err.Error(),
		FellBack: len(entry.Series) > 0,
		Err:      err,
	}
	l.logger.Warn("fetch failed", "symbol", inst.Symbol, "range", r.String(), "fell_back", d.FellBack, "error", err)
	if d.FellBack {
		return outcome{asset: asset.New(inst, entry.Series), diag: d}
	}
	return outcome{diag: d}
}
