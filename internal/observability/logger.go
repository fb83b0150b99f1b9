package observability

import (
	"cmp"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig mirrors the logging section of the process configuration.
type LoggingConfig struct {
	// Level names the least severe level written. Unknown names mean info.
	Level string

	// Format is json for log shippers or console for a terminal.
	Format string

	// Output selects stdout or stderr.
	Output string

	// AddSource stamps each entry with the calling file and line.
	AddSource bool

	// TimeFormat is the layout of the time field, RFC 3339 when empty.
	TimeFormat string
}

// DefaultLoggingConfig returns the settings the bot runs with when the
// logging section is absent.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(cfg, out)
}

func newLogger(cfg LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = cmp.Or(cfg.TimeFormat, time.RFC3339)

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger().Level(parseLevel(cfg.Level))
}

// parseLevel maps a configured level name to a zerolog level. "warning" is
// accepted alongside zerolog's own names.
func parseLevel(name string) zerolog.Level {
	if strings.EqualFold(name, "warning") {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// WithEventContext adds inbound chat event fields to a logger.
func WithEventContext(logger zerolog.Logger, requestID, channel, threadTS string) zerolog.Logger {
	return logger.With().
		Str("request_id", requestID).
		Str("channel", channel).
		Str("thread_ts", threadTS).
		Logger()
}

// WithQueryContext adds social search fields to a logger.
func WithQueryContext(logger zerolog.Logger, query, source string) zerolog.Logger {
	return logger.With().
		Str("query", query).
		Str("source", source).
		Logger()
}

// WithPaperContext adds paper-related fields to a logger.
func WithPaperContext(logger zerolog.Logger, arxivID string) zerolog.Logger {
	return logger.With().
		Str("arxiv_id", arxivID).
		Logger()
}
