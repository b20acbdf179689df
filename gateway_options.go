package creatorflow

import (
	"log/slog"
	"time"

	"github.com/mhpenta/creatorflow/ratelimiter"
)

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets a structured logger for the gateway.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCallTimeout bounds each provider attempt. Zero disables the bound.
func WithCallTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// WithRetryPolicy sets the backoff used for RATE_LIMITED and TIMEOUT failures.
func WithRetryPolicy(policy RetryPolicy) GatewayOption {
	return func(g *Gateway) {
		g.retry = policy
	}
}

// WithRateLimiter overrides the budget of one provider. A nil limiter removes it.
func WithRateLimiter(provider string, limiter ratelimiter.Limiter) GatewayOption {
	return func(g *Gateway) {
		g.limiters.Set(provider, limiter)
	}
}

// WithWaitOnRateLimit makes the gateway wait for budget, up to maxWait, instead
// of failing with RATE_LIMITED immediately. A zero maxWait waits indefinitely.
func WithWaitOnRateLimit(maxWait time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.waitOnRateLimit = true
		g.maxWait = maxWait
	}
}

// WithTokenEstimator replaces the estimator used to charge rate budgets.
func WithTokenEstimator(e TokenEstimator) GatewayOption {
	return func(g *Gateway) {
		if e != nil {
			g.tokenEstimator = e
		}
	}
}

// WithMetrics records provider calls and retries.
func WithMetrics(m MetricsRecorder) GatewayOption {
	return func(g *Gateway) {
		if m != nil {
			g.metrics = m
		}
	}
}
