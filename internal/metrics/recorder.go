package metrics

import "time"

// ResultLabel enumerates pass result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel enumerates whole-build outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for builds and the watcher.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObservePassDuration(pass string, d time.Duration)
	IncPassResult(pass string, result ResultLabel)
	ObserveBuildDuration(mode string, d time.Duration)
	IncBuildOutcome(mode string, outcome OutcomeLabel)
	IncWatchEvent()
	IncWatchCoalesced()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(string, time.Duration)  {}
func (NoopRecorder) IncPassResult(string, ResultLabel)          {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, OutcomeLabel)       {}
func (NoopRecorder) IncWatchEvent()                             {}
func (NoopRecorder) IncWatchCoalesced()                         {}
