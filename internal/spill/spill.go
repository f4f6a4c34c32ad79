// Package spill accumulates written bytes in memory up to a threshold and
// transparently continues in a temporary file beyond it. The switch happens
// at most once per writer and is irreversible.
package spill

import (
	"bytes"
	"fmt"
	"os"
)

//go:generate mockgen -source=spill.go -destination=mock/spill.go -package=mock

// TempFiler creates the backing file a writer spills into. It is an
// interface so storage policy (naming, directory, permissions) stays with
// the caller.
type TempFiler interface {
	CreateTemp() (*os.File, error)
}

// Writer buffers up to threshold bytes in memory; one byte more moves the
// whole content to a file obtained from the filer.
type Writer struct {
	threshold int64
	filer     TempFiler

	buf  bytes.Buffer
	file *os.File
	path string
	size int64
}

func NewWriter(threshold int64, filer TempFiler) *Writer {
	return &Writer{
		threshold: threshold,
		filer:     filer,
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.path != "" && w.file == nil {
		return 0, fmt.Errorf("write to closed spill writer backed by %s", w.path)
	}

	if w.file == nil && w.size+int64(len(p)) > w.threshold {
		if err := w.spill(); err != nil {
			return 0, err
		}
	}

	var (
		n   int
		err error
	)
	if w.file != nil {
		n, err = w.file.Write(p)
		if err != nil {
			err = fmt.Errorf("failed to write to temp file: %w", err)
		}
	} else {
		n, err = w.buf.Write(p)
	}
	w.size += int64(n)

	return n, err
}

// spill moves the buffered prefix to a fresh temp file.
func (w *Writer) spill() error {
	f, err := w.filer.CreateTemp()
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(w.buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to flush buffered content: %w", err)
	}

	w.file = f
	w.path = f.Name()
	w.buf.Reset()

	return nil
}

// InMemory reports whether the content still lives in the memory buffer.
func (w *Writer) InMemory() bool {
	return w.path == ""
}

// Bytes returns the in-memory content. It is nil once the writer has
// spilled; read the file instead.
func (w *Writer) Bytes() []byte {
	if w.path != "" {
		return nil
	}

	return w.buf.Bytes()
}

// Path returns the backing file path, or "" while in memory.
func (w *Writer) Path() string {
	return w.path
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.size
}

// Close releases the write handle on the backing file, if any. The file
// itself stays on disk; deleting it is the owner's call.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	f := w.file
	w.file = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return nil
}

// Discard drops the memory buffer and removes the backing file if one was
// created.
func (w *Writer) Discard() error {
	w.buf.Reset()
	if w.path == "" {
		return nil
	}

	if err := w.Close(); err != nil {
		return err
	}
	if err := os.Remove(w.path); err != nil {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}

	return nil
}
