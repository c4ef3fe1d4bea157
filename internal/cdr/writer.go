// Package cdr appends call-detail records for session lifecycle events.
package cdr

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

// TimeLayout is the local timestamp format of each record.
const TimeLayout = "2006-01-02 15:04:05"

// Recorder receives session lifecycle events.
type Recorder interface {
	Write(imsi, action string) error
}

// Writer appends one line per event: "<timestamp>, <imsi>, <action>".
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	now    func() time.Time
	path   string
}

// Open opens (or creates) the CDR file in append mode.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, pgwerrors.NewPGWError("open", pgwerrors.ErrCDRUnavailable, err, path)
	}
	return &Writer{out: f, closer: f, now: time.Now, path: path}, nil
}

// New wraps an arbitrary writer.
func New(w io.Writer) *Writer {
	return &Writer{out: w, now: time.Now}
}

// WithClock overrides the timestamp source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Write appends a record. Safe for concurrent use.
func (w *Writer) Write(imsi, action string) error {
	line := fmt.Sprintf("%s, %s, %s\n", w.now().Local().Format(TimeLayout), imsi, action)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return pgwerrors.ErrCDRUnavailable
	}
	if _, err := io.WriteString(w.out, line); err != nil {
		return fmt.Errorf("write CDR for %s to %s: %w", imsi, w.path, err)
	}
	return nil
}

// Close closes the backing file. Later writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.out = nil
	if w.closer == nil {
		return nil
	}
	c := w.closer
	w.closer = nil
	return c.Close()
}
