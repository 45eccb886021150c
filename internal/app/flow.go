package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"market-stats/internal/asset"
	"market-stats/internal/fetch"
	"market-stats/internal/model"
	"market-stats/internal/provider"
	"market-stats/internal/recorder"
)

// Runner loads the configured instruments and computes their statistics.
type Runner struct {
	cfg      *Config
	loader   *fetch.Loader
	provider provider.Provider
	recorder recorder.Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex // one run at a time
}

// NewRunner creates a Runner.
func NewRunner(cfg *Config, loader *fetch.Loader, p provider.Provider, rec recorder.Recorder, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, loader: loader, provider: p, recorder: rec, logger: logger, now: time.Now}
}

// RunOnce loads every instrument, writes the run report, logs and records the
// statistics of each loaded asset.
func (r *Runner) RunOnce(ctx context.Context) ([]asset.MetricResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	instruments, err := r.cfg.LoadInstruments()
	if err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}
	start, end, err := r.cfg.Range(started)
	if err != nil {
		return nil, err
	}
	req, err := r.cfg.StatsRequest()
	if err != nil {
		return nil, err
	}
	req.Start, req.End = start, end

	r.logger.Info("run started", "instruments", len(instruments), "provider", r.provider.GetName(),
		"start", start.Format(model.DateFormat), "end", end.Format(model.DateFormat))
	res, err := r.loader.LoadAssets(ctx, instruments, start, end)
	if err != nil {
		return nil, err
	}
	if err := fetch.WriteRunReport(r.cfg.ReportDir, res); err != nil {
		r.logger.Warn("could not write run report", "error", err)
	} else {
		r.logger.Info("run report saved", "success", len(res.Assets), "failed", len(res.Diagnostics))
	}

	stats := make([]asset.MetricResult, 0, len(res.Assets))
	for _, a := range res.Assets {
		m, err := a.ComputeStats(req)
		if err != nil {
			r.logger.Warn("stats failed", "symbol", a.Symbol(), "error", err)
			continue
		}
		r.logger.Info("asset stats", "label", a.Instrument.DisplayName(), "stats", m)
		stats = append(stats, m)
	}

	run := &recorder.RunRecord{
		Started:     started,
		Finished:    r.now(),
		Provider:    r.provider.GetName(),
		Range:       model.NewDateRange(start, end),
		Instruments: len(instruments),
		Assets:      len(res.Assets),
		Failures:    res.Diagnostics,
	}
	if err := r.recorder.RecordRun(run, stats); err != nil {
		r.logger.Warn("could not record run", "error", err)
	}
	return stats, nil
}

// RunFlow runs once, then again on every REFRESH_CRON tick until ctx is done.
// Without a schedule it returns after the first run.
func (r *Runner) RunFlow(ctx context.Context) error {
	if _, err := r.RunOnce(ctx); err != nil {
		return err
	}
	if r.cfg.RefreshCron == "" {
		return nil
	}

	sched, err := cron.ParseStandard(r.cfg.RefreshCron)
	if err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", r.cfg.RefreshCron, err)
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("scheduled run failed", "error", err)
		}
	}))
	c.Start()
	r.logger.Info("done, wait until next run", "cron", r.cfg.RefreshCron,
		"next_run", sched.Next(r.now().UTC()).Format("2006-01-02 15:04"))

	<-ctx.Done()
	r.logger.Info("received signal, graceful shutdown")
	<-c.Stop().Done()
	return nil
}
