package logger

import (
	"log/syslog"

	"github.com/sirupsen/logrus"
)

// SyslogHook forwards entries to the local syslog daemon, mapping logrus
// levels onto syslog priorities. Grounded on the teacher's hooksyslog, built
// here on the standard log/syslog writer instead of a third-party syslog
// client since the core already assumes a Linux host (ipc/shm, ipc/mutex).
type SyslogHook struct {
	w   *syslog.Writer
	fmt logrus.Formatter
}

// NewSyslogHook dials the local syslog daemon under tag.
func NewSyslogHook(tag string, formatter logrus.Formatter) (*SyslogHook, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, err
	}
	return &SyslogHook{w: w, fmt: formatter}, nil
}

func (h *SyslogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *SyslogHook) Fire(e *logrus.Entry) error {
	line, err := h.fmt.Format(e)
	if err != nil {
		return err
	}
	msg := string(line)

	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return h.w.Crit(msg)
	case logrus.ErrorLevel:
		return h.w.Err(msg)
	case logrus.WarnLevel:
		return h.w.Warning(msg)
	case logrus.InfoLevel:
		return h.w.Info(msg)
	default:
		return h.w.Debug(msg)
	}
}

// Close closes the syslog connection.
func (h *SyslogHook) Close() error {
	return h.w.Close()
}
