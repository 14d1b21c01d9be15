package core

import "time"

// Recorder receives generation, export and fallback events. internal/metrics
// implements it with Prometheus collectors.
type Recorder interface {
	RecordGeneration(rows int, elapsed time.Duration)
	RecordExport(format string)
	RecordFallback(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGeneration(int, time.Duration) {}
func (nopRecorder) RecordExport(string)                 {}
func (nopRecorder) RecordFallback(string)               {}
