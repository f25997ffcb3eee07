package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu          sync.Mutex
	base        zerolog.Logger
	initialized atomic.Bool
)

// Init configures the global JSON logger.
//
// Environment variables (optional):
//   - LOG_LEVEL: debug|info|warn|error (default: info)
//   - LOG_PRETTY: true|false (default: false)
func Init() {
	var w io.Writer = os.Stdout
	if strings.EqualFold(getenv("LOG_PRETTY", "false"), "true") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	SetOutput(w)
}

// SetOutput rebuilds the global logger on w, keeping the LOG_LEVEL setting.
func SetOutput(w io.Writer) {
	level := parseLevel(getenv("LOG_LEVEL", "info"))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	base = zerolog.New(w).With().Timestamp().Str("service", "flexsync").Logger().Level(level)
	initialized.Store(true)
	mu.Unlock()
}

// L returns the global logger, initialising it from the environment on first use.
func L() *zerolog.Logger {
	if !initialized.Load() {
		mu.Lock()
		needInit := !initialized.Load()
		mu.Unlock()
		if needInit {
			Init()
		}
	}
	return &base
}

// ForAccount returns a child logger tagged with the brokerage account.
func ForAccount(accountID string) zerolog.Logger {
	return L().With().Str("account", accountID).Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
