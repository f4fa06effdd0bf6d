package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrFinished is returned when writing to a closed log.
var ErrFinished = errors.New("replay: log already finished")

// Writer appends entries to a compressed match log. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *zstd.Encoder
	w      *bufio.Writer
	done   bool
}

// NewWriter compresses entries into w. The caller keeps ownership of w.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("replay: cannot create encoder: %w", err)
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Create opens a log file, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("replay: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot create %s: %w", path, err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Start writes the header.
func (w *Writer) Start(h Header) error {
	if h.Version == 0 {
		h.Version = FormatVersion
	}
	return w.write(entry{Type: entryHeader, Header: &h})
}

// RecordTick writes one tick.
func (w *Writer) RecordTick(t Tick) error {
	return w.write(entry{Type: entryTick, Tick: &t})
}

// Finish writes the end record and closes the log.
func (w *Writer) Finish(e End) error {
	err := w.write(entry{Type: entryEnd, End: &e})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) write(e entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return ErrFinished
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("replay: cannot encode %s: %w", e.Type, err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and closes the log without an end record.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true

	err := w.w.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
