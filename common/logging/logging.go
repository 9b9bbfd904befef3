// Package logging implements module scoped structured logging on top of
// go-kit log.
//
// Loggers may be obtained before Initialize is called, so that packages can
// keep a logger in a package level variable. Such loggers discard output
// until the backend is initialized and then switch over to it.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
)

var (
	backend logBackend

	_ pflag.Value = (*Level)(nil)
	_ pflag.Value = (*Format)(nil)
)

// Format is a log output format.
type Format uint

const (
	// FmtLogfmt is the logfmt output format.
	FmtLogfmt Format = iota
	// FmtJSON is the JSON output format.
	FmtJSON
)

var formatNames = []string{"logfmt", "JSON"}

// String returns the name of the Format.
func (f *Format) String() string {
	return formatNames[*f]
}

// Set sets the Format from its case-insensitive name.
func (f *Format) Set(s string) error {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			*f = Format(i)
			return nil
		}
	}
	return fmt.Errorf("logging: invalid log format: '%s'", s)
}

// Type returns the list of Format names.
func (f *Format) Type() string {
	return "[" + strings.Join(formatNames, ",") + "]"
}

// Level is a log level. Messages below a logger's level are dropped.
type Level uint

const (
	// LevelDebug is the log level for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the log level for informative messages.
	LevelInfo
	// LevelWarn is the log level for warning messages.
	LevelWarn
	// LevelError is the log level for error messages.
	LevelError
)

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the name of the Level.
func (l *Level) String() string {
	return levelNames[*l]
}

// Set sets the Level from its case-insensitive name.
func (l *Level) Set(s string) error {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("logging: invalid log level: '%s'", s)
}

// Type returns the list of Level names.
func (l *Level) Type() string {
	return "[" + strings.Join(levelNames, ",") + "]"
}

// Logger is a module logger.
type Logger struct {
	logger log.Logger
	level  Level
	module string
}

func (l *Logger) log(lvl Level, value level.Value, msg string, keyvals []interface{}) {
	if lvl < l.level {
		return
	}
	_ = l.logger.Log(append([]interface{}{level.Key(), value, "msg", msg}, keyvals...)...)
}

// Debug logs msg and the key value pairs at the debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, level.DebugValue(), msg, keyvals)
}

// Info logs msg and the key value pairs at the info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, level.InfoValue(), msg, keyvals)
}

// Error logs msg and the key value pairs at the error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, level.ErrorValue(), msg, keyvals)
}

// With returns a logger that adds the key value pairs to every message.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{
		logger: log.With(l.logger, keyvals...),
		level:  l.level,
		module: l.module,
	}
}

// GetLogger returns a logger for module.
func GetLogger(module string) *Logger {
	return backend.getLogger(module)
}

// Initialize sets up the backend to write to w in the given format. A
// module logs at the level of the longest matching prefix in moduleLvls,
// or at defaultLvl if none matches. A nil w discards all output.
func Initialize(w io.Writer, format Format, defaultLvl Level, moduleLvls map[string]Level) error {
	backend.Lock()
	defer backend.Unlock()

	if backend.initialized {
		return fmt.Errorf("logging: already initialized")
	}

	logger := log.NewNopLogger()
	if w != nil {
		w = log.NewSyncWriter(w)
		switch format {
		case FmtLogfmt:
			logger = log.NewLogfmtLogger(w)
		case FmtJSON:
			logger = log.NewJSONLogger(w)
		default:
			return fmt.Errorf("logging: unsupported log format: %d", format)
		}
	}

	backend.base = log.With(logger, "ts", log.DefaultTimestampUTC)
	backend.defaultLevel = defaultLvl
	backend.moduleLevels = moduleLvls
	backend.initialized = true

	for _, l := range backend.early {
		l.swap.Swap(backend.base)
		l.logger.level = backend.levelLocked(l.logger.module)
	}
	backend.early = nil

	return nil
}

type earlyLogger struct {
	swap   *log.SwapLogger
	logger *Logger
}

type logBackend struct {
	sync.Mutex

	base         log.Logger
	defaultLevel Level
	moduleLevels map[string]Level

	early       []*earlyLogger
	initialized bool
}

func (b *logBackend) levelLocked(module string) Level {
	lvl, matched := b.defaultLevel, -1
	for prefix, l := range b.moduleLevels {
		if len(prefix) > matched && strings.HasPrefix(module, prefix) {
			lvl, matched = l, len(prefix)
		}
	}
	return lvl
}

func (b *logBackend) getLogger(module string) *Logger {
	// Frames between the go-kit valuer and the caller of a Logger method.
	const callerDepth = 5

	b.Lock()
	defer b.Unlock()

	var (
		base log.Logger = b.base
		swap *log.SwapLogger
	)
	if !b.initialized {
		swap = &log.SwapLogger{}
		base = swap
	}

	l := &Logger{
		logger: log.WithPrefix(base, "module", module, "caller", log.Caller(callerDepth)),
		level:  b.levelLocked(module),
		module: module,
	}
	if swap != nil {
		b.early = append(b.early, &earlyLogger{swap: swap, logger: l})
	}
	return l
}
