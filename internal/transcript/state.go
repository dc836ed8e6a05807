// Package transcript holds the client state of a LiveHint session and the
// reducer that advances it. Recognition events, user intents and fetch
// results all go through Reduce, which returns the next state together with
// the side effects the caller must perform.
package transcript

import (
	"github.com/nikhilbhutani/livehint/internal/recommend"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

// RecordingState is the two-valued capture flag.
type RecordingState int

const (
	Idle RecordingState = iota
	Recording
)

func (r RecordingState) String() string {
	if r == Recording {
		return "recording"
	}
	return "idle"
}

// RecommendationStatus tracks the lifecycle of the latest recommendation.
type RecommendationStatus int

const (
	RecommendationNone RecommendationStatus = iota
	RecommendationLoading
	RecommendationReady
	RecommendationFailed
)

// Recommendation is the single, optional recommendation shown to the user.
type Recommendation struct {
	Status RecommendationStatus
	Text   string
}

// Set reports whether a recommendation should be displayed.
func (r Recommendation) Set() bool { return r.Status != RecommendationNone }

// State is the whole client state.
type State struct {
	// Transcript is the concatenation of finalized segments, each followed by
	// a single space.
	Transcript string
	// Interim is the latest non-final hypothesis.
	Interim        string
	Recording      RecordingState
	Recommendation Recommendation
	// Language is read when the next capture starts.
	Language speech.Locale
	// Generation counts capture starts. Fetch results from older generations
	// are discarded.
	Generation uint64

	// pending counts started sessions whose end has not arrived yet.
	pending int
	// dispatchOnEnd is cleared when the latest session failed.
	dispatchOnEnd bool
}

// New returns the initial state.
func New() State {
	return State{Language: speech.DefaultLocale}
}

// Live reports whether a capture session is in progress or winding down.
func (s State) Live() bool { return s.pending > 0 }

func loading() Recommendation {
	return Recommendation{Status: RecommendationLoading, Text: recommend.LoadingText}
}

func failed() Recommendation {
	return Recommendation{Status: RecommendationFailed, Text: recommend.ErrorText}
}
