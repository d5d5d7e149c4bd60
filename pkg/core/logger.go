package core

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds the structured logger shared by the store, the agent and
// the CLI. Output goes to stderr so it never mixes with chat replies.
func NewLogger(cfg LogConfig) *log.Logger {
	return NewLoggerWithWriter(os.Stderr, cfg)
}

// NewLoggerWithWriter is NewLogger with an explicit destination.
func NewLoggerWithWriter(w io.Writer, cfg LogConfig) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           parseLevel(cfg.Level),
		Prefix:          "smartchat",
	})
}

// NopLogger returns a logger that discards everything.
func NopLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
