// Package ratelimiter budgets provider calls by requests and tokens per minute.
package ratelimiter

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExceedsCapacity is returned when a single call needs more tokens than
	// the budget can ever hold.
	ErrExceedsCapacity = errors.New("request exceeds rate limit capacity")

	// ErrWaitTooLong is returned when the wait for capacity would exceed maxWait.
	ErrWaitTooLong = errors.New("rate limit wait exceeds max wait")
)

// Limiter defines the interface for rate limiters.
// Implementations can be local (in-memory) or distributed (Redis, etc.).
type Limiter interface {
	// TryConsume atomically checks capacity and consumes tokens if available.
	// Returns true if tokens were consumed, false if insufficient capacity.
	TryConsume(numTokens int) bool

	// TimeUntilAvailable returns how long until tokens would be available (read-only).
	TimeUntilAvailable(tokens int) time.Duration

	// WaitAndConsume waits until tokens are available, then consumes them.
	// Returns error if context is cancelled or maxWait is exceeded.
	WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error
}
