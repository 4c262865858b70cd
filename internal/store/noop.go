package store

import "fvgscan/pkg/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.ScanResult) error       { return nil }
func (n *NoopRecorder) RecentGaps(_ string, _ int) ([]Gap, error) { return nil, nil }
func (n *NoopRecorder) Close() error                              { return nil }
