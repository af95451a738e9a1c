// jsonlog.go - Structured logging for the clinic backend
package server

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogOptions selects the output format and minimum level.
type LogOptions struct {
	JSON   bool
	Level  string
	Output io.Writer
}

// Logger wraps zerolog behind a small field-map API so handlers do not
// depend on the backend directly.
type Logger struct {
	zl zerolog.Logger
}

// DefaultLogger is used by servers built without Config.Logger.
var DefaultLogger = NewLogger(LogOptions{
	JSON:  os.Getenv("CLINIC_LOG_FORMAT") == "json" || os.Getenv("CLINIC_ENV") == "production",
	Level: os.Getenv("CLINIC_LOG_LEVEL"),
})

// NewLogger builds a Logger. JSON lines go to Output as-is; otherwise a
// human-readable console writer is used.
func NewLogger(opts LogOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02T15:04:05Z07:00", NoColor: true}
	}
	zl := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", "clinic-backend").
		Logger()
	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

// Error logs msg at error level with err attached.
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.zl.Error().Err(err).Fields(fields).Msg(msg)
}
