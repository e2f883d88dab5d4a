package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileHook appends formatted entries to a single open file. It is the
// Go-native stand-in for the teacher's hookfile: no rotation (an external
// tool or log-rotate's copytruncate owns that), just a mutex-guarded
// append writer.
type FileHook struct {
	mu  sync.Mutex
	f   *os.File
	fmt logrus.Formatter
}

// NewFileHook opens path for appending (creating it if needed) and returns
// a hook that writes every entry formatted by formatter to it.
func NewFileHook(path string, formatter logrus.Formatter) (*FileHook, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileHook{f: f, fmt: formatter}, nil
}

func (h *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *FileHook) Fire(e *logrus.Entry) error {
	b, err := h.fmt.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.f.Write(b)
	return err
}

// Close closes the underlying file.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.f.Close()
}
