package compile

import "git.home.luguber.info/inful/texbuilder/internal/metrics"

// Observer receives callbacks around pass execution and run completion.
type Observer interface {
	OnPassStart(runID string, pass Pass)
	OnPassComplete(runID string, res PassResult, err error)
	OnRunComplete(res *Result, err error)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnPassStart(string, Pass)                 {}
func (NoopObserver) OnPassComplete(string, PassResult, error) {}
func (NoopObserver) OnRunComplete(*Result, error)             {}

// recorderObserver adapts metrics.Recorder into an Observer.
type recorderObserver struct{ rec metrics.Recorder }

func (recorderObserver) OnPassStart(string, Pass) {}

func (r recorderObserver) OnPassComplete(_ string, res PassResult, err error) {
	r.rec.ObservePassDuration(string(res.Kind), res.Duration)
	r.rec.IncPassResult(string(res.Kind), passResultLabel(err))
}

func (r recorderObserver) OnRunComplete(res *Result, err error) {
	r.rec.ObserveBuildDuration(string(res.Mode), res.Duration)
	r.rec.IncBuildOutcome(string(res.Mode), OutcomeOf(err))
}

// multiObserver fans callbacks out in registration order.
type multiObserver []Observer

func (m multiObserver) OnPassStart(id string, p Pass) {
	for _, o := range m {
		o.OnPassStart(id, p)
	}
}

func (m multiObserver) OnPassComplete(id string, res PassResult, err error) {
	for _, o := range m {
		o.OnPassComplete(id, res, err)
	}
}

func (m multiObserver) OnRunComplete(res *Result, err error) {
	for _, o := range m {
		o.OnRunComplete(res, err)
	}
}

func passResultLabel(err error) metrics.ResultLabel {
	switch OutcomeOf(err) {
	case metrics.OutcomeSuccess:
		return metrics.ResultSuccess
	case metrics.OutcomeCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
