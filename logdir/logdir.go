// Copyright (c) 2025 BVK Chaitanya

// Package logdir implements an io.Writer log backend that writes timestamped,
// size-capped log files under a chosen directory.
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ReuseInterval is the time window during which a new backend will append
	// to an existing log file instead of creating a new one. Keeps a
	// crash-looping program from filling the directory with empty files.
	ReuseInterval = time.Hour

	// MaxFileSize is the size limit after which the backend rotates to a new
	// log file.
	MaxFileSize int64 = 100 * 1024 * 1024

	// FileMode is the mode for newly created log files.
	FileMode = os.FileMode(0600)
)

type Backend struct {
	fp   *os.File
	size int64

	dirname, name string
}

// New opens a log file named after the given program name in the directory.
func New(dirname, name string) (*Backend, error) {
	fp, size, err := open(dirname, name, ReuseInterval)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	b := &Backend{
		fp:      fp,
		size:    size,
		dirname: dirname,
		name:    name,
	}
	return b, nil
}

func (b *Backend) Close() {
	b.fp.Close()
	b.fp = nil
}

func logFileName(name string, at time.Time, truncate time.Duration) string {
	at = at.UTC()
	if truncate != 0 {
		at = at.Truncate(truncate)
	}
	stamp := fmt.Sprintf("%d%02d%02d-%02d%02d%02d.%09d", at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), at.Nanosecond())
	return fmt.Sprintf("%s-%s.log", name, stamp)
}

func open(dirname, name string, truncate time.Duration) (*os.File, int64, error) {
	filename := logFileName(name, time.Now(), truncate)
	fp, err := os.OpenFile(filepath.Join(dirname, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, -1, fmt.Errorf("could not open/create log file: %w", err)
	}
	finfo, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, -1, fmt.Errorf("could not stat log file: %w", err)
	}
	size := finfo.Size()
	if size >= MaxFileSize {
		fp.Close()
		return open(dirname, name, 0)
	}
	return fp, size, nil
}

func (b *Backend) Write(data []byte) (int, error) {
	if b.size+int64(len(data)) > MaxFileSize {
		fp, size, err := open(b.dirname, b.name, ReuseInterval)
		if err != nil {
			return 0, fmt.Errorf("could not rotate log file: %w", err)
		}
		b.fp.Close()
		b.fp, b.size = fp, size
	}
	n, err := b.fp.Write(data)
	b.size += int64(n)
	return n, err
}
