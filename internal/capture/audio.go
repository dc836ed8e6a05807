package capture

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// AudioFeed reads a PCM source into fixed-size chunks. The source is read
// for the lifetime of the feed and shared by successive sessions; chunks
// produced while no session is consuming them are dropped.
type AudioFeed struct {
	src       io.Reader
	chunkSize int
	log       *slog.Logger

	once   sync.Once
	chunks chan []byte
}

// NewAudioFeed returns a feed over src. Reading starts on the first call to
// Chunks.
func NewAudioFeed(src io.Reader, chunkSize int, log *slog.Logger) *AudioFeed {
	if log == nil {
		log = slog.Default()
	}
	return &AudioFeed{
		src:       src,
		chunkSize: chunkSize,
		log:       log,
		chunks:    make(chan []byte, 32),
	}
}

// Chunks returns the chunk stream. It is closed when the source is exhausted.
func (f *AudioFeed) Chunks() <-chan []byte {
	f.once.Do(func() { go f.read() })
	return f.chunks
}

func (f *AudioFeed) read() {
	defer close(f.chunks)
	buf := make([]byte, f.chunkSize)
	for {
		n, err := io.ReadFull(f.src, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case f.chunks <- chunk:
			default:
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				f.log.Error("read audio", "error", err)
			}
			return
		}
	}
}
