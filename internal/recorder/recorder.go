package recorder

import (
	"time"

	"market-stats/internal/asset"
	"market-stats/internal/fetch"
	"market-stats/internal/model"
)

// RunRecord summarises one load run.
type RunRecord struct {
	Started     time.Time
	Finished    time.Time
	Provider    string
	Range       model.DateRange
	Instruments int
	Assets      int
	Failures    []fetch.Diagnostic
}

// Recorder persists run history for later analysis.
type Recorder interface {
	// RecordRun stores run and the statistics computed in it.
	RecordRun(run *RunRecord, stats []asset.MetricResult) error
	Close() error
}
