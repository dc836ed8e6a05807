package transcript

import (
	"strings"

	"github.com/nikhilbhutani/livehint/pkg/speech"
)

// Reduce applies ev to s and returns the next state with the effects to run,
// in order. It never mutates s.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Recognition:
		return reduceRecognition(s, ev.Event)

	case StartRequested:
		if s.Recording == Recording {
			return s, nil
		}
		s.Recording = Recording
		s.pending++
		s.dispatchOnEnd = true
		s.Interim = ""
		s.Generation++
		// The cancelled fetch will never report back.
		if s.Recommendation.Status == RecommendationLoading {
			s.Recommendation = Recommendation{}
		}
		return s, []Effect{CancelFetch{}, StartCapture{Locale: s.Language}}

	case StartFailed:
		if s.pending > 0 {
			s.pending--
		}
		s.Recording = Idle
		s.dispatchOnEnd = false
		return s, nil

	case StopRequested:
		if s.Recording == Idle {
			return s, nil
		}
		s.Recording = Idle
		s.Interim = ""
		return s, []Effect{StopCapture{}}

	case LanguageSelected:
		s.Language = ev.Locale
		return s, nil

	case FetchRequested:
		return dispatch(s)

	case RecommendationReady:
		if ev.Generation != s.Generation {
			return s, nil
		}
		s.Recommendation = Recommendation{Status: RecommendationReady, Text: ev.Text}
		return s, nil

	case RecommendationFailed:
		if ev.Generation != s.Generation {
			return s, nil
		}
		s.Recommendation = failed()
		return s, nil
	}
	return s, nil
}

func reduceRecognition(s State, ev speech.Event) (State, []Effect) {
	switch ev := ev.(type) {
	case speech.ResultEvent:
		if s.pending == 0 {
			return s, nil
		}
		s.Transcript, s.Interim = Accumulate(s.Transcript, ev)
		return s, nil

	case speech.ErrorEvent:
		// Errors of a session that was already superseded change nothing.
		if ev.Recoverable() || s.pending != 1 {
			return s, nil
		}
		wasRecording := s.Recording == Recording
		s.Recording = Idle
		s.Interim = ""
		s.dispatchOnEnd = false
		if wasRecording {
			return s, []Effect{StopCapture{}}
		}
		return s, nil

	case speech.EndEvent:
		if s.pending == 0 {
			return s, nil
		}
		s.pending--
		if s.pending > 0 {
			// An older session finished after a new one started.
			return s, nil
		}
		s.Recording = Idle
		s.Interim = ""
		if !s.dispatchOnEnd {
			return s, nil
		}
		s.dispatchOnEnd = false
		return dispatch(s)
	}
	return s, nil
}

// dispatch hands the finalized transcript to the recommendation client.
func dispatch(s State) (State, []Effect) {
	if strings.TrimSpace(s.Transcript) == "" {
		return s, nil
	}
	s.Recommendation = loading()
	return s, []Effect{FetchRecommendation{Text: s.Transcript, Generation: s.Generation}}
}

// Accumulate folds one result event into the transcript. Final hypotheses
// from ev.Index onwards are appended in order, each with one trailing space;
// the last non-final hypothesis becomes the interim segment, which is empty
// when the event has none.
func Accumulate(transcript string, ev speech.ResultEvent) (string, string) {
	start := ev.Index
	if start < 0 {
		start = 0
	}
	if start > len(ev.Results) {
		start = len(ev.Results)
	}

	var b strings.Builder
	b.WriteString(transcript)
	interim := ""
	for _, h := range ev.Results[start:] {
		if h.Final {
			b.WriteString(h.Text)
			b.WriteByte(' ')
			continue
		}
		interim = h.Text
	}
	return b.String(), interim
}
