// Package ui is the LiveHint terminal interface. Every key press, recognition
// event and fetch result is applied to transcript.State through
// transcript.Reduce; the effects it returns are turned into tea.Cmds.
package ui

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikhilbhutani/livehint/internal/transcript"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

// Alert texts shown in the dismissible overlay.
const (
	// AlertUnsupported is shown on start when no recognizer is configured.
	AlertUnsupported = "Sorry, speech recognition is not supported in this environment."
	// AlertCopied confirms a clipboard copy.
	AlertCopied = "Recommendation copied to clipboard!"
	// AlertCopyFailed reports a clipboard write error.
	AlertCopyFailed = "Could not copy the recommendation to the clipboard."
)

// Capture is the part of capture.Adapter the UI drives.
type Capture interface {
	Start(ctx context.Context, locale speech.Locale) error
	Stop() error
	Events() <-chan speech.Event
}

// Recommender fetches a recommendation for a transcript.
type Recommender interface {
	Recommend(ctx context.Context, text string) (string, error)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(m *Model) { m.clipboard = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// Model is the root bubbletea model.
type Model struct {
	state transcript.State

	ctx         context.Context
	capture     Capture // nil when speech capture is unsupported
	client      Recommender
	clipboard   Clipboard
	log         *slog.Logger
	cancelFetch context.CancelFunc

	modal bool
	alert string

	width  int
	height int
}

// New creates a Model. A nil capture makes the start action show the
// unsupported alert instead of recording.
func New(ctx context.Context, capture Capture, client Recommender, opts ...Option) Model {
	m := Model{
		state:     transcript.New(),
		ctx:       ctx,
		capture:   capture,
		client:    client,
		clipboard: systemClipboard{},
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// State returns the current transcript state.
func (m Model) State() transcript.State { return m.state }

func (m Model) Init() tea.Cmd {
	if m.capture == nil {
		return nil
	}
	return waitForEvent(m.capture.Events())
}

// waitForEvent reads the next recognition event.
func waitForEvent(events <-chan speech.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return CaptureClosedMsg{}
		}
		return RecognitionMsg{Event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RecognitionMsg:
		if ev, ok := msg.Event.(speech.ErrorEvent); ok && !ev.Recoverable() {
			m.log.Error("speech recognition error", "reason", ev.Reason)
		}
		var cmd tea.Cmd
		m, cmd = m.apply(transcript.Recognition{Event: msg.Event})
		return m, tea.Batch(cmd, waitForEvent(m.capture.Events()))

	case CaptureClosedMsg:
		return m, nil

	case StartFailedMsg:
		m.log.Error("start capture", "error", msg.Err)
		m.alert = msg.Err.Error()
		return m.apply(transcript.StartFailed{Err: msg.Err})

	case RecommendationMsg:
		if ev, ok := msg.Event.(transcript.RecommendationFailed); ok && ev.Generation == m.state.Generation {
			m.log.Error("error fetching recommendation", "error", ev.Err)
		}
		return m.apply(msg.Event)

	case ClipboardMsg:
		if msg.Err != nil {
			m.log.Error("copy recommendation", "error", msg.Err)
			m.alert = AlertCopyFailed
		} else {
			m.alert = AlertCopied
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case KeyQuit, KeyCtrlC:
		return m.quit()
	}

	// Overlays swallow everything except their dismiss keys.
	if m.alert != "" {
		if key == KeyEsc || key == KeyEnter {
			m.alert = ""
		}
		return m, nil
	}
	if m.modal {
		if key == KeyEsc || key == KeyEnter {
			m.modal = false
		}
		return m, nil
	}

	switch key {
	case KeySpace:
		if m.capture == nil {
			m.alert = AlertUnsupported
			return m, nil
		}
		if m.state.Recording == transcript.Recording {
			return m.apply(transcript.StopRequested{})
		}
		return m.apply(transcript.StartRequested{})

	case KeyLanguage:
		return m.apply(transcript.LanguageSelected{Locale: speech.NextLanguage(m.state.Language)})

	case KeyCopy:
		if !m.state.Recommendation.Set() {
			return m, nil
		}
		return m, copyCmd(m.clipboard, m.state.Recommendation.Text)

	case KeyEnter:
		if m.state.Recommendation.Set() {
			m.modal = true
		}
		return m, nil

	case KeyRerequest:
		return m.apply(transcript.FetchRequested{})
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	if m.capture != nil && m.state.Recording == transcript.Recording {
		if err := m.capture.Stop(); err != nil {
			m.log.Warn("stop capture on quit", "error", err)
		}
	}
	return m, tea.Quit
}

// apply runs ev through the reducer and converts the effects to commands.
func (m Model) apply(ev transcript.Event) (Model, tea.Cmd) {
	var effects []transcript.Effect
	m.state, effects = transcript.Reduce(m.state, ev)

	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case transcript.CancelFetch:
			if m.cancelFetch != nil {
				m.cancelFetch()
				m.cancelFetch = nil
			}
		case transcript.StartCapture:
			cmds = append(cmds, startCmd(m.ctx, m.capture, eff.Locale))
		case transcript.StopCapture:
			cmds = append(cmds, stopCmd(m.capture, m.log))
		case transcript.FetchRecommendation:
			if m.cancelFetch != nil {
				m.cancelFetch()
			}
			ctx, cancel := context.WithCancel(m.ctx)
			m.cancelFetch = cancel
			cmds = append(cmds, fetchCmd(ctx, m.client, eff))
		}
	}
	return m, tea.Batch(cmds...)
}

func startCmd(ctx context.Context, c Capture, locale speech.Locale) tea.Cmd {
	return func() tea.Msg {
		if err := c.Start(ctx, locale); err != nil {
			return StartFailedMsg{Err: err}
		}
		return nil
	}
}

func stopCmd(c Capture, log *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		if err := c.Stop(); err != nil {
			log.Warn("stop capture", "error", err)
		}
		return nil
	}
}

// fetchCmd performs one recommendation request. Nothing is reported once ctx
// has been cancelled, since a newer fetch or capture has superseded it.
func fetchCmd(ctx context.Context, client Recommender, eff transcript.FetchRecommendation) tea.Cmd {
	return func() tea.Msg {
		text, err := client.Recommend(ctx, eff.Text)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return RecommendationMsg{Event: transcript.RecommendationFailed{Generation: eff.Generation, Err: err}}
		}
		return RecommendationMsg{Event: transcript.RecommendationReady{Generation: eff.Generation, Text: text}}
	}
}

func copyCmd(c Clipboard, text string) tea.Cmd {
	return func() tea.Msg {
		return ClipboardMsg{Err: c.WriteAll(text)}
	}
}
