// Package logging configures zerolog for the CLI and defines the
// structured events the rest of the application emits.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log lines go and how much gets through.
type Config struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig keeps a week of rotated files next to the rest of the
// application state.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "polymarket-trader", "logs", "trader.log"),
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 30,
	}
}

// NewLogger builds the logger with the default configuration.
func NewLogger() zerolog.Logger {
	return New(DefaultConfig())
}

// New builds a logger from cfg. Console lines go to stderr so a --json
// run keeps stdout parseable; the rotated file keeps the raw JSON
// stream. With no sink configured everything still lands on stderr.
func New(cfg Config) zerolog.Logger {
	var sinks []io.Writer

	if cfg.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if cfg.File && cfg.FilePath != "" {
		// An unwritable log directory silently drops the file sink,
		// the console keeps working.
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			sinks = append(sinks, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			})
		}
	}

	var out io.Writer
	switch len(sinks) {
	case 0:
		out = os.Stderr
	case 1:
		out = sinks[0]
	default:
		out = zerolog.MultiLevelWriter(sinks...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	return zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
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

// SetDebugLevel drops the global threshold to debug, used by the
// --debug flag after the logger is already built.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithAgent tags every line of a sub-logger with the agent name.
func WithAgent(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("agent", name).Logger()
}

// LogBet emits the canonical bet-placement event. Every placement,
// simulated or live, produces exactly one of these.
func LogBet(logger zerolog.Logger, market, outcome string, amountUSD, price float64, dryRun bool) {
	logger.Info().
		Str("event", "bet").
		Str("market", market).
		Str("outcome", outcome).
		Float64("amount_usd", amountUSD).
		Float64("price", price).
		Bool("dry_run", dryRun).
		Msg("Bet placed")
}

// LogToolCall records one tool dispatch within an agent session.
func LogToolCall(logger zerolog.Logger, tool string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "tool_call").
		Str("tool", tool).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Tool call failed")
	} else {
		event.Msg("Tool call completed")
	}
}

// LogAPICall records one venue request with its round-trip time.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("API request failed")
	} else {
		event.Msg("API request completed")
	}
}
