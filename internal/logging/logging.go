// Package logging provides the leveled log gate shared by the client, guard and
// credential stores.
package logging

import (
	"fmt"
	"log"
	"strings"
)

type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelInfo
	LevelDebug
)
const LevelDefault = LevelError

// ParseLevel maps "none", "error", "info" and "debug" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return LevelError, nil
	case "none":
		return LevelNone, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelDefault, fmt.Errorf("unknown log level '%s'", s)
	}
}

// Logger writes through the standard logger when the message level is enabled.
// A nil *Logger is valid and discards everything.
type Logger struct {
	prefix string
	level  Level
	out    *log.Logger
}

func New(prefix string, level Level) *Logger {
	return &Logger{
		prefix: prefix,
		level:  level,
	}
}

// WithOutput routes messages to a dedicated logger instead of the standard one.
func (l *Logger) WithOutput(out *log.Logger) *Logger {
	return &Logger{
		prefix: l.prefix,
		level:  l.level,
		out:    out,
	}
}

func (l *Logger) Level() Level {
	if l == nil {
		return LevelNone
	}
	return l.level
}

func (l *Logger) Printf(level Level, format string, v ...any) {
	if l == nil || l.level < level || level == LevelNone {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		msg = l.prefix + ": " + msg
	}
	if l.out != nil {
		l.out.Print(msg)
		return
	}
	log.Print(msg)
}

func (l *Logger) Errorf(format string, v ...any) { l.Printf(LevelError, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.Printf(LevelInfo, format, v...) }
func (l *Logger) Debugf(format string, v ...any) { l.Printf(LevelDebug, format, v...) }
