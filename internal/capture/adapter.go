// Package capture wraps a host speech recognizer into a continuous capture
// session that the user starts and stops. Transient "aborted" failures are
// absorbed by restarting the session; everything else is forwarded on a
// single ordered event stream.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/livehint/pkg/speech"
)

var (
	// ErrUnsupported means no recognizer is available in this environment.
	ErrUnsupported = errors.New("capture: speech recognition is not supported")
	// ErrAlreadyStarted is returned by Start while a session is active.
	ErrAlreadyStarted = errors.New("capture: session already started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("capture: adapter closed")
)

// Config configures a recognition session.
type Config struct {
	Locale         speech.Locale
	Continuous     bool
	InterimResults bool
}

// Session is a running recognition session. The events channel delivers
// results and errors, ends with an EndEvent and is then closed.
type Session interface {
	Events() <-chan speech.Event
	// Stop asks the session to finish. It must be safe to call more than once.
	Stop() error
}

// Recognizer is the host capability that opens recognition sessions.
type Recognizer interface {
	Start(ctx context.Context, cfg Config) (Session, error)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for session lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) Option {
	return func(a *Adapter) { a.bufSize = n }
}

// Adapter drives one recognition session at a time.
type Adapter struct {
	rec     Recognizer
	log     *slog.Logger
	bufSize int

	events chan speech.Event

	mu      sync.Mutex
	active  *run
	pending *pendingStart
	closed  bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// pendingStart is a Start waiting for a stopped run to wind down. A Stop in
// the meantime cancels it.
type pendingStart struct {
	cancelled bool
}

// run is one user-started capture, possibly spanning several recognizer
// sessions after restarts.
type run struct {
	id      string
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
	sess    Session
	stopped bool
	done    chan struct{}
}

// New returns an Adapter over rec. A nil recognizer yields ErrUnsupported.
func New(rec Recognizer, opts ...Option) (*Adapter, error) {
	if rec == nil {
		return nil, ErrUnsupported
	}
	a := &Adapter{
		rec:     rec,
		log:     slog.Default(),
		bufSize: 64,
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.events = make(chan speech.Event, a.bufSize)
	return a, nil
}

// Events returns the stream of recognition events across all sessions. It is
// closed by Close.
func (a *Adapter) Events() <-chan speech.Event { return a.events }

// Start begins a continuous, interim-reporting session for locale. The
// locale is passed to the recognizer as is. If a stopped session is still
// winding down, Start waits for its EndEvent to be delivered first; a Stop
// during that wait cancels the start, which then only emits an EndEvent.
func (a *Adapter) Start(ctx context.Context, locale speech.Locale) error {
	a.mu.Lock()
	if a.pending != nil {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	if r := a.active; r != nil {
		if !r.stopped {
			a.mu.Unlock()
			return ErrAlreadyStarted
		}
		p := &pendingStart{}
		a.pending = p
		a.mu.Unlock()

		select {
		case <-r.done:
		case <-ctx.Done():
			a.mu.Lock()
			a.pending = nil
			a.mu.Unlock()
			return ctx.Err()
		}

		a.mu.Lock()
		a.pending = nil
		if p.cancelled && !a.closed {
			a.wg.Add(1)
			a.mu.Unlock()
			defer a.wg.Done()
			a.log.Info("capture start cancelled by stop", "locale", string(locale))
			select {
			case a.events <- speech.EndEvent{}:
			case <-a.quit:
			}
			return nil
		}
	}
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	cfg := Config{Locale: locale, Continuous: true, InterimResults: true}
	runCtx, cancel := context.WithCancel(ctx)
	sess, err := a.rec.Start(runCtx, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("start recognition: %w", err)
	}

	r := &run{
		id:     uuid.NewString(),
		cfg:    cfg,
		ctx:    runCtx,
		cancel: cancel,
		sess:   sess,
		done:   make(chan struct{}),
	}
	a.active = r
	a.log.Info("capture started", "session_id", r.id, "locale", string(locale))

	a.wg.Add(1)
	go a.pump(r, sess)
	return nil
}

// Stop ends the active session, or cancels a Start still waiting for the
// previous session to end. Calling it while idle does nothing.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	r := a.active
	if r == nil || r.stopped {
		if a.pending != nil {
			a.pending.cancelled = true
		}
		a.mu.Unlock()
		return nil
	}
	r.stopped = true
	sess := r.sess
	a.mu.Unlock()

	a.log.Info("capture stopping", "session_id", r.id)
	if err := sess.Stop(); err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

// Active reports whether a session is running.
func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// Close stops any active session, waits for it to drain and closes the
// event stream.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.quit)
	r := a.active
	var sess Session
	if r != nil {
		r.stopped = true
		sess = r.sess
	}
	a.mu.Unlock()

	if r != nil {
		_ = sess.Stop()
		r.cancel()
	}
	a.wg.Wait()
	close(a.events)
	return nil
}

// pump forwards the events of sess. It replaces sess with a fresh session on
// a recoverable error and emits exactly one EndEvent for the run.
func (a *Adapter) pump(r *run, sess Session) {
	defer a.wg.Done()

	for {
		restart := false
		for ev := range sess.Events() {
			if e, ok := ev.(speech.ErrorEvent); ok && e.Recoverable() {
				restart = true
				break
			}
			if _, ok := ev.(speech.EndEvent); ok {
				break
			}
			if e, ok := ev.(speech.ErrorEvent); ok {
				a.log.Error("speech recognition error", "session_id", r.id, "reason", e.Reason)
				a.mu.Lock()
				r.stopped = true
				a.mu.Unlock()
				_ = sess.Stop()
			}
			a.emit(r, ev)
		}

		if restart {
			_ = sess.Stop()
			go drain(sess)

			next, ok := a.restart(r)
			if ok {
				sess = next
				continue
			}
		}

		a.finish(r)
		return
	}
}

// restart opens a replacement session unless the run was stopped meanwhile.
func (a *Adapter) restart(r *run) (Session, bool) {
	a.mu.Lock()
	stop := r.stopped || a.closed
	a.mu.Unlock()
	if stop {
		return nil, false
	}

	a.log.Warn("speech recognition aborted, restarting", "session_id", r.id)
	sess, err := a.rec.Start(r.ctx, r.cfg)
	if err != nil {
		a.log.Error("restart recognition", "session_id", r.id, "error", err)
		a.emit(r, speech.ErrorEvent{Reason: "restart-failed"})
		return nil, false
	}

	a.mu.Lock()
	r.sess = sess
	stopped := r.stopped
	a.mu.Unlock()
	if stopped {
		// Stop raced with the restart; let the new session wind down.
		_ = sess.Stop()
	}
	return sess, true
}

func (a *Adapter) finish(r *run) {
	a.emit(r, speech.EndEvent{})

	a.mu.Lock()
	if a.active == r {
		a.active = nil
	}
	a.mu.Unlock()
	r.cancel()
	close(r.done)
	a.log.Info("capture ended", "session_id", r.id)
}

// emit delivers ev unless the run was torn down by Close.
func (a *Adapter) emit(r *run, ev speech.Event) {
	select {
	case a.events <- ev:
	case <-r.ctx.Done():
	}
}

func drain(sess Session) {
	for range sess.Events() {
	}
}
