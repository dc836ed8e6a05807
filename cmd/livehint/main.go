// Command livehint is the terminal client. It streams microphone audio to the
// speech recognizer and asks the backend for a recommendation whenever a
// recording ends.
//
// Audio is raw 16-bit mono PCM read from stdin or -audio, for example:
//
//	arecord -q -f S16_LE -r 16000 -c 1 | livehint
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/livehint/internal/capture"
	"github.com/nikhilbhutani/livehint/internal/capture/deepgram"
	"github.com/nikhilbhutani/livehint/internal/capture/whisper"
	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/recommend"
	"github.com/nikhilbhutani/livehint/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	audioPath := flag.String("audio", "-", "PCM audio source (- for stdin)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.Telemetry.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.Telemetry.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	audio, closeAudio, err := openAudio(*audioPath)
	if err != nil {
		return err
	}
	defer closeAudio()

	adapter, err := newCapture(cfg.Capture, audio, logger)
	if err != nil && !errors.Is(err, capture.ErrUnsupported) {
		return err
	}
	var c ui.Capture
	if adapter != nil {
		defer adapter.Close()
		c = adapter
	} else {
		logger.Warn("speech capture unavailable", "reason", "no recognizer configured")
	}

	client := recommend.NewClient(recommend.Config{
		BaseURL: cfg.Client.BackendURL,
		Token:   cfg.Client.Token,
		Timeout: cfg.Client.Timeout,
	})

	m := ui.New(ctx, c, client, ui.WithLogger(logger))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInputTTY())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// newCapture returns capture.ErrUnsupported when no recognizer is configured.
func newCapture(cfg config.CaptureConfig, audio io.Reader, logger *slog.Logger) (*capture.Adapter, error) {
	var rec capture.Recognizer
	switch cfg.Recognizer() {
	case "deepgram":
		dg, err := deepgram.New(cfg.DeepgramKey,
			deepgram.WithModel(cfg.Model),
			deepgram.WithSampleRate(cfg.SampleRate),
			deepgram.WithAudio(audio),
			deepgram.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		rec = dg
	case "whisper":
		opts := []whisper.Option{
			whisper.WithModel(cfg.WhisperModel),
			whisper.WithSampleRate(cfg.SampleRate),
			whisper.WithAudio(audio),
			whisper.WithLogger(logger),
		}
		if cfg.WhisperURL != "" {
			opts = append(opts, whisper.WithBaseURL(cfg.WhisperURL))
		}
		w, err := whisper.New(cfg.WhisperKey, opts...)
		if err != nil {
			return nil, err
		}
		rec = w
	}
	if rec != nil {
		logger.Info("speech capture ready", "recognizer", cfg.Recognizer())
	}
	return capture.New(rec, capture.WithLogger(logger))
}

func openAudio(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audio: %w", err)
	}
	return f, func() { f.Close() }, nil
}
