// Package deepgram implements capture.Recognizer on top of Deepgram's live
// streaming websocket API. Raw linear16 PCM is read from an audio source
// (stdin by default) and streamed to Deepgram; interim and final results are
// mapped to speech events.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/nikhilbhutani/livehint/internal/capture"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-2"
	defaultSampleRate = 16000
	defaultChunkSize  = 3200 // 100ms of 16kHz mono linear16

	// Deepgram closes idle streams with this code in the close reason.
	idleTimeoutCode = "NET-0001"
	closeGrace      = 5 * time.Second
)

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithModel sets the Deepgram model (e.g. "nova-2", "base").
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// WithSampleRate sets the sample rate of the PCM input in Hz.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// WithEndpoint overrides the streaming endpoint.
func WithEndpoint(endpoint string) Option {
	return func(r *Recognizer) { r.endpoint = endpoint }
}

// WithAudio sets the PCM source. It is read for the lifetime of the
// Recognizer and shared by all sessions.
func WithAudio(src io.Reader) Option {
	return func(r *Recognizer) { r.src = src }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) { r.log = l }
}

// Recognizer opens Deepgram streaming sessions.
type Recognizer struct {
	apiKey     string
	model      string
	endpoint   string
	sampleRate int
	src        io.Reader
	log        *slog.Logger

	feedOnce sync.Once
	feed     *capture.AudioFeed
}

// New creates a Recognizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	r := &Recognizer{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		sampleRate: defaultSampleRate,
		src:        os.Stdin,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

var _ capture.Recognizer = (*Recognizer)(nil)

// Start dials Deepgram and returns a running session.
func (r *Recognizer) Start(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	wsURL, err := r.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	s := &session{
		conn:   conn,
		events: make(chan speech.Event, 64),
		stop:   make(chan struct{}),
		log:    r.log,
	}
	go s.writeLoop(ctx, r.audio().Chunks())
	go s.readLoop(ctx)
	return s, nil
}

// buildURL constructs the streaming endpoint URL for cfg.
func (r *Recognizer) buildURL(cfg capture.Config) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", r.model)
	if cfg.Locale != "" {
		q.Set("language", string(cfg.Locale))
	}
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(r.sampleRate))
	q.Set("channels", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// audio returns the shared feed, created on first use so WithAudio applies.
func (r *Recognizer) audio() *capture.AudioFeed {
	r.feedOnce.Do(func() { r.feed = capture.NewAudioFeed(r.src, defaultChunkSize, r.log) })
	return r.feed
}

// ---- session ----

// deepgramResponse is the JSON structure of a Results message.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type session struct {
	conn   *websocket.Conn
	events chan speech.Event
	log    *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

func (s *session) Events() <-chan speech.Event { return s.events }

// Stop asks Deepgram to flush and close the stream. The connection is forced
// closed if Deepgram does not finish within closeGrace.
func (s *session) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		time.AfterFunc(closeGrace, func() { s.conn.CloseNow() })
	})
	return nil
}

func (s *session) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// writeLoop streams audio until the session is stopped or the source runs
// dry, then sends CloseStream so Deepgram finalizes pending results.
func (s *session) writeLoop(ctx context.Context, chunks <-chan []byte) {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				s.closeStream(ctx)
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.stop:
			s.closeStream(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) closeStream(ctx context.Context) {
	if err := s.conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.log.Debug("deepgram close stream", "error", err)
	}
}

// readLoop maps Deepgram messages to speech events. It owns the events
// channel and always finishes with an EndEvent.
func (s *session) readLoop(ctx context.Context) {
	defer close(s.events)
	defer s.conn.CloseNow()

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			if reason, failed := classify(err, s.stopping()); failed {
				s.log.Warn("deepgram stream failed", "reason", reason, "error", err)
				s.events <- speech.ErrorEvent{Reason: reason}
			}
			s.events <- speech.EndEvent{}
			return
		}

		if ev, ok := parseResponse(msg); ok {
			select {
			case s.events <- ev:
			case <-ctx.Done():
			}
		}
	}
}

// classify decides how a read error ends the session. A normal closure or a
// requested stop is a plain end; Deepgram's idle timeout is reported as
// aborted so the capture restarts.
func classify(err error, stopping bool) (string, bool) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		switch {
		case ce.Code == websocket.StatusNormalClosure:
			return "", false
		case strings.Contains(ce.Reason, idleTimeoutCode):
			return speech.ReasonAborted, true
		}
	}
	if stopping || errors.Is(err, context.Canceled) {
		return "", false
	}
	return "network", true
}

// parseResponse converts a Results message into a single-hypothesis result
// event. Empty finals carry no hypothesis so they only clear the interim.
func parseResponse(data []byte) (speech.ResultEvent, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return speech.ResultEvent{}, false
	}
	if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
		return speech.ResultEvent{}, false
	}

	text := resp.Channel.Alternatives[0].Transcript
	if resp.IsFinal && strings.TrimSpace(text) == "" {
		return speech.ResultEvent{}, true
	}
	return speech.ResultEvent{
		Results: []speech.Hypothesis{{Text: text, Final: resp.IsFinal}},
	}, true
}
