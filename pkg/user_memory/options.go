package usermemory

import (
	"time"

	"github.com/charmbracelet/log"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// StoreOptions contains configuration options for a Store.
type StoreOptions struct {
	// Logger receives load and save warnings. Defaults to a discarding logger.
	Logger *log.Logger

	// Clock stamps profiles, exchanges and saves. Defaults to wall time.
	Clock Clock
}

// StoreOption is a function type for configuring a Store.
type StoreOption func(*StoreOptions)

// WithLogger sets the logger.
//
// Example:
//
//	store, _ := usermemory.NewStore(ctx, backend, usermemory.WithLogger(logger))
func WithLogger(logger *log.Logger) StoreOption {
	return func(opts *StoreOptions) {
		opts.Logger = logger
	}
}

// WithClock sets the clock used for every timestamp the store writes.
func WithClock(clock Clock) StoreOption {
	return func(opts *StoreOptions) {
		opts.Clock = clock
	}
}

// ExchangeOptions contains options for AppendExchange.
type ExchangeOptions struct {
	// SessionID tags the exchange with the session that produced it.
	SessionID string
}

// ExchangeOption is a function type for configuring AppendExchange.
type ExchangeOption func(*ExchangeOptions)

// WithSessionID tags the recorded exchange.
func WithSessionID(sessionID string) ExchangeOption {
	return func(opts *ExchangeOptions) {
		opts.SessionID = sessionID
	}
}
