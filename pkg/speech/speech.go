// Package speech holds the vocabulary shared between recognizers, the capture
// adapter and the transcript reducer: recognition events, hypotheses and the
// supported locales.
package speech

// ReasonAborted is the error reason a recognizer reports when a session was
// cut short for a transient cause. Sessions ending this way are restarted.
const ReasonAborted = "aborted"

// Hypothesis is a single recognition hypothesis.
type Hypothesis struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Event is a recognition event delivered by a capture session.
type Event interface {
	speechEvent()
}

// ResultEvent carries the hypothesis list of a recognition session. Index is
// the position of the first hypothesis that changed since the previous event;
// entries before it were already reported.
type ResultEvent struct {
	Index   int
	Results []Hypothesis
}

// ErrorEvent reports a recognition failure.
type ErrorEvent struct {
	Reason string
}

// EndEvent signals that the session finished and will emit nothing more.
type EndEvent struct{}

func (ResultEvent) speechEvent() {}
func (ErrorEvent) speechEvent()  {}
func (EndEvent) speechEvent()    {}

// Recoverable reports whether the error only requires a session restart.
func (e ErrorEvent) Recoverable() bool { return e.Reason == ReasonAborted }
