// Package lol (log of location) is a leveled logger that prints a timestamp,
// a colored level tag, the message and the code location that emitted it.
// Every level carries printf/println/spew/closure entrypoints plus the check
// and error-constructor helpers that the chk and errorf packages re-export.
package lol

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

const (
	// Fatal is for errors the process cannot continue from.
	Fatal int32 = iota
	// Error is for conditions that failed an operation.
	Error
	// Warn is for conditions a caller may want to know about but which did
	// not fail an operation.
	Warn
	// Info is for messages about major lifecycle events.
	Info
	// Debug is for messages useful when hunting down misbehaviour.
	Debug
	// Trace is for following the full detail of execution.
	Trace
)

// LevelNames maps the level constants to the names accepted by SetLogLevel
// and printed in the level tag.
var LevelNames = []string{"fatal", "error", "warn", "info", "debug", "trace"}

var levelColors = []func(format string, a ...interface{}) string{
	color.New(color.FgRed, color.Bold).Sprintf,
	color.New(color.FgRed).Sprintf,
	color.New(color.FgYellow).Sprintf,
	color.New(color.FgGreen).Sprintf,
	color.New(color.FgBlue).Sprintf,
	color.New(color.FgMagenta).Sprintf,
}

var currentLevel atomic.Int32

// C is a closure that a caller hands to the C printers so the message is only
// rendered if the level is enabled.
type C func() string

// LevelPrinter is the set of outputs available at each log level.
type LevelPrinter struct {
	// Ln prints a space-separated list of values and a newline.
	Ln func(a ...any)
	// F prints a printf style formatted string.
	F func(format string, a ...any)
	// S spew-dumps the values for deep inspection.
	S func(a ...any)
	// C evaluates and prints the closure only when the level is enabled.
	C func(closure C)
	// Chk prints the error if it is not nil and reports whether it was.
	Chk func(e error) bool
	// Err formats an error, prints it, and returns it.
	Err func(format string, a ...any) error
}

// Log is a set of level printers covering all levels.
type Log struct {
	F, E, W, I, D, T LevelPrinter
}

// Main is the shared logger the log, chk and errorf packages re-export.
var Main = New(os.Stderr)

func init() {
	currentLevel.Store(Info)
}

// SetLogLevel adjusts the level of the shared logger by name. Unknown names
// leave the level at info.
func SetLogLevel(name string) {
	currentLevel.Store(int32(GetLogLevel(name)))
}

// GetLogLevel returns the level number for a level name, defaulting to info.
func GetLogLevel(name string) (lvl int) {
	lvl = int(Info)
	for i, v := range LevelNames {
		if strings.EqualFold(name, v) {
			return i
		}
	}
	return
}

// Level returns the currently enabled level of the shared logger.
func Level() int32 { return currentLevel.Load() }

// Tracer prints a trace-level message for function entry/exit annotations.
func Tracer(a ...any) {
	if currentLevel.Load() < Trace {
		return
	}
	Main.T.Ln(a...)
}

func getLoc(skip int) (loc string) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return
	}
	return file + ":" + strconv.Itoa(line)
}

func timestamp() string {
	return time.Now().Format("2006-01-02T15:04:05.000Z07:00")
}

// New constructs a Log writing to w. Printers capture their own level so the
// shared level gate applies to every entrypoint.
func New(w io.Writer) (l *Log) {
	l = &Log{
		F: printer(w, Fatal),
		E: printer(w, Error),
		W: printer(w, Warn),
		I: printer(w, Info),
		D: printer(w, Debug),
		T: printer(w, Trace),
	}
	return
}

func emit(w io.Writer, level int32, loc, msg string) {
	tag := levelColors[level](strings.ToUpper(LevelNames[level][:3]))
	_, _ = fmt.Fprintf(
		w, "%s %s %s %s\n", timestamp(), tag,
		strings.TrimRight(msg, "\n"), color.New(color.Faint).Sprint(loc),
	)
}

func printer(w io.Writer, level int32) LevelPrinter {
	enabled := func() bool { return currentLevel.Load() >= level }
	return LevelPrinter{
		Ln: func(a ...any) {
			if !enabled() {
				return
			}
			emit(w, level, getLoc(2), fmt.Sprintln(a...))
		},
		F: func(format string, a ...any) {
			if !enabled() {
				return
			}
			emit(w, level, getLoc(2), fmt.Sprintf(format, a...))
		},
		S: func(a ...any) {
			if !enabled() {
				return
			}
			emit(w, level, getLoc(2), spew.Sdump(a...))
		},
		C: func(closure C) {
			if !enabled() {
				return
			}
			emit(w, level, getLoc(2), closure())
		},
		Chk: func(e error) bool {
			if e == nil {
				return false
			}
			if enabled() {
				emit(w, level, getLoc(2), e.Error())
			}
			return true
		},
		Err: func(format string, a ...any) error {
			err := fmt.Errorf(format, a...)
			if enabled() {
				emit(w, level, getLoc(2), err.Error())
			}
			return err
		},
	}
}
