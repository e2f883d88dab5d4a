package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// StandardHook splits entries across stdout and stderr by level: Warn and
// above go to stderr, everything else to stdout, matching the teacher's
// hookstdout/hookstderr split rather than logrus's single-writer default.
type StandardHook struct {
	mu sync.Mutex
	fm logrus.Formatter
}

// NewStandardHook returns a StandardHook formatting with formatter.
func NewStandardHook(formatter logrus.Formatter) *StandardHook {
	return &StandardHook{fm: formatter}
}

func (h *StandardHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *StandardHook) Fire(e *logrus.Entry) error {
	b, err := h.fm.Format(e)
	if err != nil {
		return err
	}

	w := os.Stdout
	if e.Level <= logrus.WarnLevel {
		w = os.Stderr
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = w.Write(b)
	return err
}
