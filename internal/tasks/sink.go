package tasks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DirSink writes export files into a directory, creating it when needed. Existing files are replaced.
type DirSink struct {
	Dir string
}

// NewDirSink creates a DirSink for dir; an empty dir means the working directory.
func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = "."
	}
	return &DirSink{Dir: dir}
}

func (s *DirSink) Deliver(content []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(s.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriterSink streams export content to a writer such as stdout.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Deliver(content []byte, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(content); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return "-", nil
}
