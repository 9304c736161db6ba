// Package nanolog is a minimal leveled logger over the standard library
// "log" package.
//
// No third-party structured logging library appears anywhere in the
// retrieved corpus (direct or indirect) for any of the example repositories,
// so there is no ecosystem dependency to ground this on; every example that
// logs at all (tinySQL's cmd/server, cmd/tinysqlpage) calls straight into
// "log". This package just adds levels and a component tag on top of that.
package nanolog

import (
	"log"
	"os"
)

// Level is a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger tags every line with a component name and filters by minimum level.
type Logger struct {
	component string
	min       Level
	out       *log.Logger
}

// New returns a Logger for the named component, writing to stderr.
func New(component string) *Logger {
	return &Logger{
		component: component,
		min:       Info,
		out:       log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetMinLevel changes the minimum level that is actually emitted.
func (l *Logger) SetMinLevel(lv Level) { l.min = lv }

func (l *Logger) log(lv Level, format string, a ...any) {
	if lv < l.min {
		return
	}
	l.out.Printf("[%s] %s: "+format, append([]any{lv, l.component}, a...)...)
}

func (l *Logger) Debugf(format string, a ...any) { l.log(Debug, format, a...) }
func (l *Logger) Infof(format string, a ...any)  { l.log(Info, format, a...) }
func (l *Logger) Warnf(format string, a ...any)  { l.log(Warn, format, a...) }
func (l *Logger) Errorf(format string, a ...any) { l.log(Error, format, a...) }
