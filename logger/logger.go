// Package logger configures logrus with the file/syslog/standard hook set
// the teacher's own logger package wires, and points the child/acceptor/
// worker packages' logrus.StandardLogger() calls at it.
package logger

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Config selects which hooks New wires onto a logrus.Logger. Stdout is
// independent of File/Syslog: any combination may be enabled at once.
type Config struct {
	Level  string // logrus level name: "debug", "info", "warn", ...
	JSON   bool   // JSON formatter instead of text
	Stdout bool   // split stdout/stderr standard hook
	File   string // non-empty: append-only file hook at this path
	Syslog string // non-empty: syslog hook tagged with this value
}

func (c Config) formatter() logrus.Formatter {
	if c.JSON {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}

// closers collects every hook's Close method so Logger.Close can release
// file descriptors and syslog connections in one call.
type closer interface {
	Close() error
}

// Logger wraps a configured *logrus.Logger plus the hooks it owns, so
// shutdown can release their file descriptors.
type Logger struct {
	*logrus.Logger
	closers []closer
}

// New builds a Logger from cfg. Logging output is entirely hook-driven:
// the base logger's own output is discarded so each hook controls exactly
// where its formatted line goes.
func New(cfg Config) (*Logger, error) {
	lvl := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, CodeInvalidLevel.Error(err)
		}
		lvl = parsed
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetOutput(io.Discard)

	lg := &Logger{Logger: l}
	fm := cfg.formatter()

	if cfg.Stdout {
		l.AddHook(NewStandardHook(fm))
	}
	if cfg.File != "" {
		h, err := NewFileHook(cfg.File, fm)
		if err != nil {
			return nil, CodeFileHookOpen.Error(err)
		}
		l.AddHook(h)
		lg.closers = append(lg.closers, h)
	}
	if cfg.Syslog != "" {
		h, err := NewSyslogHook(cfg.Syslog, fm)
		if err != nil {
			return nil, CodeSyslogDial.Error(err)
		}
		l.AddHook(h)
		lg.closers = append(lg.closers, h)
	}

	return lg, nil
}

// Close releases every hook holding a file descriptor (file, syslog).
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		if e := c.Close(); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// InitStandard configures logrus's package-level standard logger from cfg,
// so the acceptor/worker/child packages' logrus.StandardLogger() calls
// pick it up without being handed a *Logger explicitly.
func InitStandard(cfg Config) (*Logger, error) {
	lg, err := New(cfg)
	if err != nil {
		return nil, err
	}

	std := logrus.StandardLogger()
	std.SetLevel(lg.Level)
	std.SetOutput(io.Discard)
	std.ReplaceHooks(lg.Hooks)

	return lg, nil
}
