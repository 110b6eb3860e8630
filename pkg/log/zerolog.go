package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	rferrors "github.com/YuminosukeSato/rftune/pkg/errors"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger creates a JSON logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	z := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{z: z}
}

// NewConsoleLogger creates a human readable logger, used by the CLI.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	return NewZerologLogger(out, level)
}

func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.z.Debug().Fields(normalizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.z.Info().Fields(normalizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.z.Warn().Fields(normalizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields ...any) {
	ev := l.z.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			var m zerolog.LogObjectMarshaler
			if errors.As(err, &m) {
				ev = ev.Object("error_detail", m)
			}
			fields = fields[1:]
		}
	}
	ev.Fields(normalizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{z: l.z.With().Fields(normalizeFields(fields)).Logger()}
}

func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.z.GetLevel()
}

// warn emits a library warning raised through pkg/errors.Warn.
func (l *ZerologLogger) warn(w error) {
	ev := l.z.Warn()
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object("warning", m)
	}
	ev.Msg(w.Error())
}

// normalizeFields drops a dangling key so zerolog does not reject the list.
func normalizeFields(fields []any) []any {
	if len(fields)%2 == 1 {
		return fields[:len(fields)-1]
	}
	return fields
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// The default logger also receives library warnings from pkg/errors.Warn.
func init() {
	SetupZerolog(LevelInfo, os.Stderr)
}

// GetLogger returns the package-level logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns the package-level logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the package-level logger. Library warnings are routed to it
// when it is a *ZerologLogger.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
	if z, ok := l.(*ZerologLogger); ok {
		rferrors.SetZerologWarnFunc(z.warn)
	} else {
		rferrors.SetZerologWarnFunc(nil)
	}
}

// SetupZerolog installs a zerolog logger writing to w as the package-level logger.
func SetupZerolog(level Level, w io.Writer) *ZerologLogger {
	l := NewZerologLogger(w, level)
	SetLogger(l)
	return l
}
