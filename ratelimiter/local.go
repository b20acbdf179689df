package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Budget is an in-memory Limiter holding a request bucket and a token bucket,
// both refilled continuously at their per-minute rate. A zero rate disables
// that bucket.
type Budget struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

// Ensure Budget implements Limiter.
var _ Limiter = (*Budget)(nil)

// New creates a Budget allowing tokensPerMinute tokens and requestsPerMinute
// requests. Both buckets start full.
func New(tokensPerMinute, requestsPerMinute int) *Budget {
	return &Budget{
		requests: perMinute(requestsPerMinute),
		tokens:   perMinute(tokensPerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/time.Minute.Seconds()), n)
}

// reserve books one request and numTokens tokens at now. The returned delay is
// how long the caller must wait before acting.
func (b *Budget) reserve(now time.Time, numTokens int) (cancel func(), delay time.Duration, ok bool) {
	req := b.requests.ReserveN(now, 1)
	if !req.OK() {
		return func() {}, 0, false
	}
	tok := b.tokens.ReserveN(now, numTokens)
	if !tok.OK() {
		req.CancelAt(now)
		return func() {}, 0, false
	}

	cancel = func() {
		tok.CancelAt(now)
		req.CancelAt(now)
	}
	return cancel, max(req.DelayFrom(now), tok.DelayFrom(now)), true
}

// TryConsume consumes one request and numTokens tokens only if both are
// available right now.
func (b *Budget) TryConsume(numTokens int) bool {
	now := time.Now()
	cancel, delay, ok := b.reserve(now, numTokens)
	if !ok {
		return false
	}
	if delay > 0 {
		cancel()
		return false
	}
	return true
}

// TimeUntilAvailable returns how long until the tokens and one request would be
// available. It does not consume anything. Requests that can never fit return -1.
func (b *Budget) TimeUntilAvailable(tokens int) time.Duration {
	now := time.Now()
	cancel, delay, ok := b.reserve(now, tokens)
	if !ok {
		return -1
	}
	cancel()
	return delay
}

// WaitAndConsume waits until tokens are available (up to maxWait), then consumes them.
// If maxWait is 0, there is no limit on how long to wait.
func (b *Budget) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	now := time.Now()
	cancel, delay, ok := b.reserve(now, tokens)
	if !ok {
		return fmt.Errorf("%w: %d tokens", ErrExceedsCapacity, tokens)
	}
	if delay == 0 {
		return nil
	}
	if maxWait > 0 && delay > maxWait {
		cancel()
		return fmt.Errorf("%w: need %v, max %v", ErrWaitTooLong, delay, maxWait)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
