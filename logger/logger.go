// Package logger provides the tagged, flag-masked logger handed to every
// service, command and widget of an orbit runtime.
//
// It is a thin layer over zerolog: a Logger carries a tag (usually the type
// name of its owner) and a Flag mask that gates which categories are
// emitted. Child loggers created with WithTag inherit the parent's mask.
package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Environment overrides applied by New.
const (
	EnvLogLevel   = "ORBIT_LOG_LEVEL"
	EnvLogFormat  = "ORBIT_LOG_FORMAT"
	EnvLogNoColor = "ORBIT_LOG_NOCOLOR"
)

// Flag selects message categories.
type Flag uint32

const (
	Verbose Flag = 1 << iota
	Info
	Warning
	Error
	Debug
	Fatal

	All = Verbose | Info | Warning | Error | Debug | Fatal
)

// Config holds logger configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error, disabled
	Format  string // console, json
	Output  string // stdout, stderr, or file path
	NoColor bool
}

// Logger is a tagged zerolog logger with a category mask.
type Logger struct {
	zl     zerolog.Logger
	tag    string
	flag   atomic.Uint32
	parent *Logger
}

// New builds a logger from cfg after applying ORBIT_LOG_* overrides.
func New(cfg Config) (*Logger, error) {
	applyEnvOverrides(&cfg)

	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		out = f
		cfg.NoColor = true
	}
	return NewWithWriter(out, cfg), nil
}

// NewWithWriter builds a logger writing to w. No environment overrides are
// applied, which makes it the constructor of choice in tests.
func NewWithWriter(w io.Writer, cfg Config) *Logger {
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}
	zl := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	l := &Logger{zl: zl}
	l.flag.Store(uint32(All))
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := &Logger{zl: zerolog.Nop()}
	l.flag.Store(uint32(All))
	return l
}

// ParseLevel maps a level name to a zerolog level; unknown names map to info.
func ParseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace", "verbose":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Format = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvLogNoColor))); err == nil {
		cfg.NoColor = v
	}
}

// Parent returns the logger this one was derived from, or nil for a root.
func (l *Logger) Parent() *Logger { return l.parent }

// Tag returns the tag attached to this logger.
func (l *Logger) Tag() string { return l.tag }

// Flag returns the mask set on this logger.
func (l *Logger) Flag() Flag { return Flag(l.flag.Load()) }

// SetFlag replaces the mask set on this logger.
func (l *Logger) SetFlag(f Flag) { l.flag.Store(uint32(f)) }

// LogFlag is the effective mask: this logger's flag restricted by every
// ancestor's flag.
func (l *Logger) LogFlag() Flag {
	f := l.Flag()
	for p := l.parent; p != nil; p = p.parent {
		f &= p.Flag()
	}
	return f
}

// SetGlobalLevel changes the process-wide minimum level. It applies to every
// logger regardless of the level it was built with.
func SetGlobalLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// Enabled reports whether a message of category f would be written.
func (l *Logger) Enabled(f Flag) bool {
	lvl := levelOf(f)
	return l.LogFlag()&f != 0 && l.zl.GetLevel() <= lvl && zerolog.GlobalLevel() <= lvl
}

// WithTag derives a child logger tagged with tag.
func (l *Logger) WithTag(tag string) *Logger {
	child := &Logger{
		zl:     l.zl.With().Str("tag", tag).Logger(),
		tag:    tag,
		parent: l,
	}
	child.flag.Store(uint32(All))
	return child
}

// WithTagOf derives a child logger tagged with the type name of v.
func (l *Logger) WithTagOf(v any) *Logger {
	return l.WithTag(TypeName(v))
}

// TypeName returns the unqualified type name of v without pointer stars.
func TypeName(v any) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", v), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Zerolog exposes the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }

// V logs a verbose message.
func (l *Logger) V(msg string, kv ...any) *Logger { return l.log(Verbose, msg, kv) }

// I logs an info message.
func (l *Logger) I(msg string, kv ...any) *Logger { return l.log(Info, msg, kv) }

// W logs a warning.
func (l *Logger) W(msg string, kv ...any) *Logger { return l.log(Warning, msg, kv) }

// E logs an error.
func (l *Logger) E(msg string, kv ...any) *Logger { return l.log(Error, msg, kv) }

// D logs a debug message.
func (l *Logger) D(msg string, kv ...any) *Logger { return l.log(Debug, msg, kv) }

// F logs at fatal level. It never exits the process.
func (l *Logger) F(msg string, kv ...any) *Logger { return l.log(Fatal, msg, kv) }

func (l *Logger) log(f Flag, msg string, kv []any) *Logger {
	if l.LogFlag()&f == 0 {
		return l
	}
	ev := l.zl.WithLevel(levelOf(f))
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(msg)
	return l
}

func levelOf(f Flag) zerolog.Level {
	switch f {
	case Verbose:
		return zerolog.TraceLevel
	case Debug:
		return zerolog.DebugLevel
	case Warning:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	case Fatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
