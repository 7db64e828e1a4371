// Package log wraps gopkg.in/op/go-logging.v1 behind a small backend
// type, handing each component its own named *logging.Logger off a
// shared Backend.
package log

import (
	"fmt"
	"io"
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

// Level names recognized by the log.level configuration option.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var format = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05.000} %{level:.4s} %{module}: %{message}`,
)

// Backend owns the shared logging destination and hands out per-module
// loggers: a component takes a *log.Backend and calls GetLogger(name).
type Backend struct {
	backend logging.LeveledBackend
}

// New builds a Backend writing to w (or os.Stderr if w is nil) at the
// given level. An empty level means "info"; an unrecognized level is an
// error.
func New(w io.Writer, level string) (*Backend, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	base := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(base, format)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	return &Backend{backend: leveled}, nil
}

// GetLogger returns a logger tagged with module, e.g.
// backend.GetLogger("server").
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

func parseLevel(level string) (logging.Level, error) {
	switch level {
	case "", LevelInfo:
		return logging.INFO, nil
	case LevelTrace, LevelDebug:
		return logging.DEBUG, nil
	case LevelWarn:
		return logging.WARNING, nil
	case LevelError:
		return logging.ERROR, nil
	case LevelFatal:
		return logging.CRITICAL, nil
	default:
		return logging.INFO, fmt.Errorf("log: unknown level %q", level)
	}
}
