// Package metrics exposes compilation counters and durations.
package metrics

import "time"

// Recorder receives compilation observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveCompileDuration(kind string, d time.Duration)
	IncPagesWritten(kind string)
	IncRedirectsWritten()
	IncRenderFailure(kind string)
	IncDraftsSkipped()
	IncWatchEvent(action string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompileDuration(string, time.Duration) {}
func (NoopRecorder) IncPagesWritten(string)                       {}
func (NoopRecorder) IncRedirectsWritten()                         {}
func (NoopRecorder) IncRenderFailure(string)                      {}
func (NoopRecorder) IncDraftsSkipped()                            {}
func (NoopRecorder) IncWatchEvent(string)                         {}

var _ Recorder = NoopRecorder{}
