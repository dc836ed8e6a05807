package transcript

import "github.com/nikhilbhutani/livehint/pkg/speech"

// Event is anything Reduce accepts. Recognition events from pkg/speech are
// events too, through the Recognition wrapper.
type Event interface {
	transcriptEvent()
}

// Recognition wraps an event delivered by the capture adapter.
type Recognition struct {
	Event speech.Event
}

// StartRequested is the user's start action.
type StartRequested struct{}

// StartFailed reports that the capture adapter could not start the session
// requested by the last StartRequested.
type StartFailed struct {
	Err error
}

// StopRequested is the user's stop action.
type StopRequested struct{}

// LanguageSelected changes the locale used by the next capture.
type LanguageSelected struct {
	Locale speech.Locale
}

// FetchRequested asks for a recommendation of the current transcript outside
// of a session end.
type FetchRequested struct{}

// RecommendationReady delivers a backend result.
type RecommendationReady struct {
	Generation uint64
	Text       string
}

// RecommendationFailed delivers a backend failure.
type RecommendationFailed struct {
	Generation uint64
	Err        error
}

func (Recognition) transcriptEvent()          {}
func (StartRequested) transcriptEvent()       {}
func (StartFailed) transcriptEvent()          {}
func (StopRequested) transcriptEvent()        {}
func (LanguageSelected) transcriptEvent()     {}
func (FetchRequested) transcriptEvent()       {}
func (RecommendationReady) transcriptEvent()  {}
func (RecommendationFailed) transcriptEvent() {}

// Effect is a side effect requested by Reduce.
type Effect interface {
	transcriptEffect()
}

// StartCapture starts a recognition session for Locale.
type StartCapture struct {
	Locale speech.Locale
}

// StopCapture stops the active recognition session.
type StopCapture struct{}

// FetchRecommendation sends Text to the backend. The result must be reported
// back with the same Generation.
type FetchRecommendation struct {
	Text       string
	Generation uint64
}

// CancelFetch cancels any in-flight recommendation request.
type CancelFetch struct{}

func (StartCapture) transcriptEffect()        {}
func (StopCapture) transcriptEffect()         {}
func (FetchRecommendation) transcriptEffect() {}
func (CancelFetch) transcriptEffect()         {}
