package recorder

import "market-stats/internal/asset"

// NoopRecorder is used when no run database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord, _ []asset.MetricResult) error { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
