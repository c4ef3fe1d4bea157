package cdr

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
}

func TestWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf).WithClock(fixedClock)

	if err := w.Write("001010123456789", "create"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write("001010123456789", "timeout"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := "2025-03-14 09:26:53, 001010123456789, create\n" +
		"2025-03-14 09:26:53, 001010123456789, timeout\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdr.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w.WithClock(fixedClock)
	if err := w.Write("250990000000001", "create"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if lines[1] != "2025-03-14 09:26:53, 250990000000001, create" {
		t.Errorf("unexpected record %q", lines[1])
	}
}

func TestOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "cdr.log"))
	if !errors.Is(err, pgwerrors.ErrCDRUnavailable) {
		t.Errorf("expected ErrCDRUnavailable, got %v", err)
	}
}

func TestWriteAfterClose(t *testing.T) {
	w := New(&bytes.Buffer{})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Write("001010123456789", "create"); !errors.Is(err, pgwerrors.ErrCDRUnavailable) {
		t.Errorf("expected ErrCDRUnavailable, got %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Write("001010123456789", "create")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Errorf("expected 50 records, got %d", len(lines))
	}
	for _, l := range lines {
		if !strings.HasSuffix(l, ", 001010123456789, create") {
			t.Errorf("interleaved record %q", l)
		}
	}
}
