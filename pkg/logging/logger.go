// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "AIRTABLE_LOG_LEVEL"
	EnvPretty = "AIRTABLE_LOG_PRETTY"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// FromEnv returns DefaultConfig overridden by AIRTABLE_LOG_LEVEL and
// AIRTABLE_LOG_PRETTY. Unparseable values are ignored.
func FromEnv() Config {
	cfg := DefaultConfig()
	if level := os.Getenv(EnvLevel); level != "" {
		cfg.Level = LogLevel(strings.ToLower(level))
	}
	if pretty, err := strconv.ParseBool(os.Getenv(EnvPretty)); err == nil {
		cfg.Pretty = pretty
	}
	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow
//   - Every request URL (unless the client runs with Debug)
//   - Pages walked and chunks sent by multi-step operations
//   - Pacing sleeps and local rate limit waits
//
// Info: client Debug mode
//   - Request method and URL
//   - Decoded response body
//
// Warn: failed or degraded requests
//   - Non-2xx responses
//   - 429 lockouts and requests refused during one
//   - GetAll stopping early
//   - Failure to store a lockout after a 429
//
// Error: transport failures
//
// Context Fields:
//   - component: airtable-client, airtable-ratelimit, airtable-cli
//   - base, table: target of the client
//   - method, url, status: request and response line
//   - error_class: client, server, rate_limit, network
//   - page, pages, records, chunk, total: multi-step progress
//   - locked_until, lockout, remaining: lockout state
