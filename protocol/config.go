package protocol

import (
	"io"
	"log/slog"
	"time"
)

// Config provides the engine parameters shared by rounds and the
// orchestrator. The zero value is usable: equality predicate, three
// channel attempts, silent logging.
type Config struct {
	// Predicate is the per-dimension comparison. The zero value is
	// Equality.
	Predicate Predicate

	// ChannelAttempts bounds tries per transfer for errors marked
	// Transient. Non-transient channel errors and all cryptographic
	// errors fail on first occurrence.
	ChannelAttempts int

	// RetryBackoff is the pause between channel attempts.
	RetryBackoff time.Duration

	// Logger receives round progress. Nil discards.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ChannelAttempts <= 0 {
		c.ChannelAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 10 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}
