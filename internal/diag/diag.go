// Package diag is neatpmd's diagnostic logger: leveled output through
// github.com/starkandwayne/goutils/ansi, using the same markup style and
// global color-toggle pattern (ansi.Color(enabled)) as the daemon's CLI
// flag handling in cmd/neatpmd.
package diag

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/starkandwayne/goutils/ansi"
)

// Level is a log severity, ordered from most to least verbose.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
)

var levelTag = map[Level]string{
	Trace: "@w{TRACE}",
	Debug: "@b{DEBUG}",
	Info:  "@g{INFO}",
	Warn:  "@y{WARN}",
	Error: "@r{ERROR}",
}

// ParseLevel maps a config log_level string to a Level. Unrecognized
// strings default to Info.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return Trace
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// SetColor toggles ansi markup globally, exactly as the teacher CLI's
// ansi.Color(isatty.IsTerminal(...)) does at startup.
func SetColor(enabled bool) { ansi.Color(enabled) }

// AutoColor reports whether out looks like an interactive terminal.
func AutoColor(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Logger writes leveled lines to an underlying writer, filtering anything
// below its configured Level.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New returns a Logger at the given minimum level, writing to out.
func New(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ansi.Fprintf(l.out, "@*{%s} "+levelTag[level]+" "+format+"\n",
		append([]interface{}{time.Now().UTC().Format(time.RFC3339)}, args...)...)
}

func (l *Logger) Tracef(format string, args ...interface{}) { l.log(Trace, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(Error, format, args...) }
