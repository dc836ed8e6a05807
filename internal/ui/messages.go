package ui

import (
	"github.com/nikhilbhutani/livehint/internal/transcript"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

// RecognitionMsg wraps an event read from the capture adapter.
type RecognitionMsg struct {
	Event speech.Event
}

// CaptureClosedMsg is sent when the adapter's event stream is closed.
type CaptureClosedMsg struct{}

// StartFailedMsg reports that the adapter refused to start a session.
type StartFailedMsg struct {
	Err error
}

// RecommendationMsg carries the outcome of a fetch as a reducer event
// (transcript.RecommendationReady or transcript.RecommendationFailed).
type RecommendationMsg struct {
	Event transcript.Event
}

// ClipboardMsg reports the result of a copy.
type ClipboardMsg struct {
	Err error
}
