// Package whisper implements capture.Recognizer over an OpenAI-compatible
// transcription endpoint: OpenAI's Whisper API or a local whisper.cpp server.
// Audio is cut into segments at pauses and each segment is transcribed into
// one final hypothesis. There are no interim results.
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/livehint/internal/capture"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

const (
	defaultModel      = openai.Whisper1
	defaultSampleRate = 16000
	defaultSilence    = 700 * time.Millisecond
	defaultMaxSegment = 15 * time.Second
	chunkSize         = 3200

	bitsPerSample = 16
	// Chunks below this RMS energy count as silence.
	silenceRMS = 300.0

	// ReasonTranscription is reported when a segment cannot be transcribed.
	ReasonTranscription = "transcription-failed"
)

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// WithBaseURL points the recognizer at an OpenAI-compatible server, such as
// a local whisper.cpp server. No API key is needed then.
func WithBaseURL(url string) Option {
	return func(r *Recognizer) { r.baseURL = url }
}

// WithSampleRate sets the sample rate of the PCM input in Hz.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// WithSilence sets how long a pause must last to end a segment.
func WithSilence(d time.Duration) Option {
	return func(r *Recognizer) { r.silence = d }
}

// WithMaxSegment caps the length of a segment.
func WithMaxSegment(d time.Duration) Option {
	return func(r *Recognizer) { r.maxSegment = d }
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

// Recognizer opens segment-by-segment transcription sessions.
type Recognizer struct {
	client     *openai.Client
	baseURL    string
	model      string
	sampleRate int
	silence    time.Duration
	maxSegment time.Duration
	src        io.Reader
	log        *slog.Logger

	feedOnce sync.Once
	feed     *capture.AudioFeed
}

var _ capture.Recognizer = (*Recognizer)(nil)

// New creates a Recognizer. apiKey may only be empty when WithBaseURL names a
// local server.
func New(apiKey string, opts ...Option) (*Recognizer, error) {
	r := &Recognizer{
		model:      defaultModel,
		sampleRate: defaultSampleRate,
		silence:    defaultSilence,
		maxSegment: defaultMaxSegment,
		src:        os.Stdin,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if apiKey == "" && r.baseURL == "" {
		return nil, errors.New("whisper: apiKey or base URL required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if r.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(r.baseURL, "/")
	}
	r.client = openai.NewClientWithConfig(cfg)
	return r, nil
}

// Start returns a running session. Nothing is dialled up front, so Start only
// fails on a cancelled context.
func (r *Recognizer) Start(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &session{
		rec:      r,
		language: language(cfg.Locale),
		events:   make(chan speech.Event, 64),
		segments: make(chan []byte, 8),
		stop:     make(chan struct{}),
	}
	go s.segmentLoop(ctx, r.audio().Chunks())
	go s.transcribeLoop(ctx)
	return s, nil
}

func (r *Recognizer) audio() *capture.AudioFeed {
	r.feedOnce.Do(func() { r.feed = capture.NewAudioFeed(r.src, chunkSize, r.log) })
	return r.feed
}

// language maps a locale such as "de-DE" to the ISO-639-1 code Whisper takes.
func language(locale speech.Locale) string {
	lang, _, _ := strings.Cut(string(locale), "-")
	return strings.ToLower(lang)
}

// ---- session ----

type session struct {
	rec      *Recognizer
	language string
	events   chan speech.Event
	segments chan []byte

	stop     chan struct{}
	stopOnce sync.Once
}

func (s *session) Events() <-chan speech.Event { return s.events }

// Stop ends segmentation. The segment in progress is still transcribed
// before the EndEvent.
func (s *session) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// segmentLoop buffers speech and hands a segment to transcribeLoop after a
// pause or when it reaches maxSegment. Leading silence is dropped.
func (s *session) segmentLoop(ctx context.Context, chunks <-chan []byte) {
	defer close(s.segments)

	bytesPerSec := s.rec.sampleRate * bitsPerSample / 8
	silenceBytes := int(s.rec.silence.Seconds() * float64(bytesPerSec))
	maxBytes := int(s.rec.maxSegment.Seconds() * float64(bytesPerSec))

	var (
		buf       []byte
		hadSpeech bool
		quiet     int
	)
	flush := func() {
		if hadSpeech && len(buf) > 0 {
			select {
			case s.segments <- buf:
			case <-ctx.Done():
			}
		}
		buf, hadSpeech, quiet = nil, false, 0
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				flush()
				return
			}
			if rms(chunk) < silenceRMS {
				if !hadSpeech {
					continue
				}
				buf = append(buf, chunk...)
				quiet += len(chunk)
				if quiet >= silenceBytes {
					flush()
				}
				continue
			}
			hadSpeech = true
			quiet = 0
			buf = append(buf, chunk...)
			if maxBytes > 0 && len(buf) >= maxBytes {
				flush()
			}
		case <-s.stop:
			flush()
			return
		case <-ctx.Done():
			return
		}
	}
}

// transcribeLoop owns the events channel and always finishes with an
// EndEvent. After a failed segment the session is stopped and the remaining
// segments are dropped.
func (s *session) transcribeLoop(ctx context.Context) {
	defer close(s.events)

	failed := false
	for pcm := range s.segments {
		if failed || ctx.Err() != nil {
			continue
		}
		text, err := s.transcribe(ctx, pcm)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.rec.log.Warn("whisper transcription failed", "error", err)
			s.events <- speech.ErrorEvent{Reason: ReasonTranscription}
			failed = true
			s.Stop()
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			select {
			case s.events <- speech.ResultEvent{Results: []speech.Hypothesis{{Text: text, Final: true}}}:
			case <-ctx.Done():
			}
		}
	}
	s.events <- speech.EndEvent{}
}

func (s *session) transcribe(ctx context.Context, pcm []byte) (string, error) {
	resp, err := s.rec.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.rec.model,
		FilePath: "segment.wav",
		Reader:   bytes.NewReader(encodeWAV(pcm, s.rec.sampleRate)),
		Language: s.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}

// encodeWAV wraps mono 16-bit little-endian PCM in a RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

// rms returns the root-mean-square energy of 16-bit little-endian PCM.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
