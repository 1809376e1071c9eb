// Package logging adapts core.Logger to logiface, with stumpy as the JSON
// backend used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/Swind/go-async-runner/core"
)

// Logger implements core.Logger on top of a generic logiface logger.
type Logger struct {
	l *logiface.Logger[logiface.Event]
}

var _ core.Logger = (*Logger)(nil)

// New wraps l. A nil l yields a logger that drops everything.
func New(l *logiface.Logger[logiface.Event]) *Logger {
	return &Logger{l: l}
}

// NewJSON returns a Logger writing one JSON object per line to w, dropping
// events less severe than level.
func NewJSON(w io.Writer, level logiface.Level) *Logger {
	l := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
	return New(l.Logger())
}

func (x *Logger) Debug(msg string, fields ...core.Field) { x.log(x.l.Debug(), msg, fields) }
func (x *Logger) Info(msg string, fields ...core.Field)  { x.log(x.l.Info(), msg, fields) }
func (x *Logger) Warn(msg string, fields ...core.Field)  { x.log(x.l.Warning(), msg, fields) }
func (x *Logger) Error(msg string, fields ...core.Field) { x.log(x.l.Err(), msg, fields) }

func (x *Logger) log(b *logiface.Builder[logiface.Event], msg string, fields []core.Field) {
	if !b.Enabled() {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			b = b.Str(f.Key, v)
		case int:
			b = b.Int(f.Key, v)
		case int64:
			b = b.Int64(f.Key, v)
		case bool:
			b = b.Bool(f.Key, v)
		case time.Duration:
			b = b.Dur(f.Key, v)
		case error:
			b = b.Str(f.Key, v.Error())
		case fmt.Stringer:
			b = b.Str(f.Key, v.String())
		default:
			b = b.Any(f.Key, v)
		}
	}
	b.Log(msg)
}

// ParseLevel maps a level name, as accepted in configuration files and on the
// command line, to a logiface level.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logiface.LevelTrace, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "", "info":
		return logiface.LevelInformational, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "off", "disabled", "none":
		return logiface.LevelDisabled, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("logging: unknown level %q", s)
	}
}
