package creatorflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mhpenta/creatorflow/ratelimiter"
)

// Operation names used in errors, logs and metrics.
const (
	OpCompleteText    = "complete_text"
	OpSynthesizeImage = "synthesize_image"
)

const (
	// DefaultCallTimeout bounds a single provider call.
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt for
	// RATE_LIMITED and TIMEOUT failures.
	DefaultMaxRetries = 2
)

var (
	errEmptyCompletion = errors.New("completion is empty")
	errEmptyImage      = errors.New("response contains no image data")
	errLocalBudget     = errors.New("local rate budget exhausted")
)

// RetryPolicy configures jittered exponential backoff between attempts.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Gateway implements ProviderGateway on top of one TextProvider and one
// ImageProvider. It bounds every call with a timeout, retries transient
// failures, enforces per-provider rate budgets and normalizes provider errors.
// A Gateway holds no per-request state and is safe for concurrent use.
type Gateway struct {
	text  TextProvider
	image ImageProvider

	timeout time.Duration
	retry   RetryPolicy

	// Rate limiting (per provider)
	limiters        ratelimiter.Registry
	waitOnRateLimit bool
	maxWait         time.Duration
	tokenEstimator  TokenEstimator

	logger  *slog.Logger
	metrics MetricsRecorder
}

// Ensure Gateway implements ProviderGateway.
var _ ProviderGateway = (*Gateway)(nil)

// NewGateway creates a Gateway. Each provider's default model rate limits seed
// its budget; use WithRateLimiter to override.
//
// Example:
//
//	text, err := openaicompat.New(openaicompat.Config{APIKey: key})
//	image, err := gemini.NewWithAPIKey(ctx, geminiKey)
//	gw, err := creatorflow.NewGateway(text, image,
//	    creatorflow.WithLogger(slog.Default()),
//	    creatorflow.WithCallTimeout(30*time.Second),
//	)
func NewGateway(text TextProvider, image ImageProvider, opts ...GatewayOption) (*Gateway, error) {
	if text == nil {
		return nil, fmt.Errorf("%w: text provider is required", ErrProviderNotConfigured)
	}
	if image == nil {
		return nil, fmt.Errorf("%w: image provider is required", ErrProviderNotConfigured)
	}

	g := &Gateway{
		text:           text,
		image:          image,
		timeout:        DefaultCallTimeout,
		retry:          DefaultRetryPolicy(),
		limiters:       ratelimiter.NewRegistry(),
		tokenEstimator: NewSimpleTokenEstimator(),
		logger:         slog.Default(),
		metrics:        noopRecorder{},
	}

	for _, p := range []interface {
		Name() string
		Models() []ModelInfo
	}{text, image} {
		info, ok := activeModel(p)
		if !ok {
			continue
		}
		if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
			g.limiters.Set(p.Name(), ratelimiter.New(
				info.RateLimits.TokensPerMinute,
				info.RateLimits.RequestsPerMinute,
			))
		}
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// SetRateLimiter sets a custom rate limiter for a provider.
// Use this to swap in a distributed rate limiter for multi-instance deployments.
func (g *Gateway) SetRateLimiter(provider string, limiter ratelimiter.Limiter) *Gateway {
	g.limiters.Set(provider, limiter)
	return g
}

// CompleteText runs a text completion and returns the trimmed text.
func (g *Gateway) CompleteText(ctx context.Context, req CompletionRequest) (string, error) {
	provider := g.text.Name()
	if req.Model == "" {
		if info, ok := defaultModel(g.text.Models()); ok {
			req.Model = info.APIModelName
		}
	}
	start := time.Now()

	g.logger.DebugContext(ctx, "starting text completion",
		"provider", provider,
		"model", req.Model,
		"prompt_length", len(req.UserMessage),
		"max_tokens", req.MaxTokens,
	)

	tokens := estimateCompletion(g.tokenEstimator, req)

	var text string
	err := g.call(ctx, provider, OpCompleteText, tokens, func(callCtx context.Context) error {
		out, err := g.text.CompleteText(callCtx, req)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return NewProviderError(KindInvalidResponse, provider, OpCompleteText, errEmptyCompletion)
		}
		text = out
		return nil
	})
	duration := time.Since(start)
	g.metrics.ObserveProviderCall(provider, OpCompleteText, err, duration)

	if err != nil {
		g.logger.ErrorContext(ctx, "text completion failed",
			"provider", provider,
			"model", req.Model,
			"duration_ms", duration.Milliseconds(),
			"kind", KindOf(err).String(),
			"error", err.Error(),
		)
		return "", err
	}

	g.logger.InfoContext(ctx, "text completion completed",
		"provider", provider,
		"model", req.Model,
		"duration_ms", duration.Milliseconds(),
		"completion_length", len(text),
	)

	return text, nil
}

// SynthesizeImage runs an image synthesis call and returns a non-empty image.
func (g *Gateway) SynthesizeImage(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error) {
	provider := g.image.Name()
	start := time.Now()

	g.logger.DebugContext(ctx, "starting image synthesis",
		"provider", provider,
		"prompt_length", len(prompt),
		"image_count", len(images),
	)

	tokens := estimateSynthesis(g.tokenEstimator, prompt, len(images))

	var result *SynthesizedImage
	err := g.call(ctx, provider, OpSynthesizeImage, tokens, func(callCtx context.Context) error {
		img, err := g.image.SynthesizeImage(callCtx, prompt, images)
		if err != nil {
			return err
		}
		if img == nil || len(img.Data) == 0 {
			return NewProviderError(KindNoOutput, provider, OpSynthesizeImage, errEmptyImage)
		}
		result = img
		return nil
	})
	duration := time.Since(start)
	g.metrics.ObserveProviderCall(provider, OpSynthesizeImage, err, duration)

	if err != nil {
		g.logger.ErrorContext(ctx, "image synthesis failed",
			"provider", provider,
			"duration_ms", duration.Milliseconds(),
			"kind", KindOf(err).String(),
			"error", err.Error(),
		)
		return nil, err
	}

	g.logger.InfoContext(ctx, "image synthesis completed",
		"provider", provider,
		"duration_ms", duration.Milliseconds(),
		"input_images", len(images),
		"mime_type", result.MIMEType,
		"output_bytes", len(result.Data),
	)

	return result, nil
}

// Close releases provider resources.
func (g *Gateway) Close() error {
	var errs []error
	for _, p := range []any{g.text, g.image} {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// call runs fn with a per-attempt timeout and rate budget, retrying only
// retryable provider errors.
func (g *Gateway) call(ctx context.Context, provider, op string, tokens int, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retry.InitialInterval
	b.MaxInterval = g.retry.MaxInterval
	b.MaxElapsedTime = 0

	maxRetries := g.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hinted := &retryAfterBackOff{BackOff: b}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(maxRetries)), ctx)

	operation := func() error {
		err := g.attempt(ctx, provider, op, tokens, fn)
		if err == nil {
			return nil
		}
		var pErr *ProviderError
		if !errors.As(err, &pErr) || !pErr.Retryable() {
			return backoff.Permanent(err)
		}
		// A provider asking for a longer pause than the policy allows is not retried.
		if g.retry.MaxInterval > 0 && pErr.RetryAfter > g.retry.MaxInterval {
			return backoff.Permanent(err)
		}
		hinted.hint = pErr.RetryAfter
		return err
	}

	notify := func(err error, wait time.Duration) {
		kind := KindOf(err)
		g.metrics.IncProviderRetry(provider, op, kind)
		g.logger.WarnContext(ctx, "retrying provider call",
			"provider", provider,
			"op", op,
			"kind", kind.String(),
			"wait_ms", wait.Milliseconds(),
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

// retryAfterBackOff waits at least the provider's RetryAfter hint before the
// next attempt.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && b.hint > next {
		next = b.hint
	}
	b.hint = 0
	return next
}

func (g *Gateway) attempt(ctx context.Context, provider, op string, tokens int, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.checkRateLimit(ctx, provider, op, tokens); err != nil {
		return err
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	// The caller went away; that is not a provider fault.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return classifyError(err, provider, op, callCtx)
}

// checkRateLimit consumes the provider's budget, optionally waiting for it.
func (g *Gateway) checkRateLimit(ctx context.Context, provider, op string, tokens int) error {
	limiter, err := g.limiters.Get(provider)
	if err != nil {
		return nil
	}

	if g.waitOnRateLimit {
		if err := limiter.WaitAndConsume(ctx, tokens, g.maxWait); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			g.logger.WarnContext(ctx, "rate limit hit", "provider", provider, "op", op, "error", err.Error())
			return &ProviderError{
				Kind:       KindRateLimited,
				Provider:   provider,
				Op:         op,
				RetryAfter: limiter.TimeUntilAvailable(tokens),
				Err:        err,
			}
		}
		return nil
	}

	if !limiter.TryConsume(tokens) {
		g.logger.WarnContext(ctx, "rate limit hit", "provider", provider, "op", op, "tokens", tokens)
		return &ProviderError{
			Kind:       KindRateLimited,
			Provider:   provider,
			Op:         op,
			RetryAfter: limiter.TimeUntilAvailable(tokens),
			Err:        errLocalBudget,
		}
	}
	return nil
}

// classifyError maps an arbitrary provider failure onto a *ProviderError.
func classifyError(err error, provider, op string, callCtx context.Context) error {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		if pErr.Provider != "" && pErr.Op != "" {
			return pErr
		}
		filled := *pErr
		if filled.Provider == "" {
			filled.Provider = provider
		}
		if filled.Op == "" {
			filled.Op = op
		}
		return &filled
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return NewProviderError(KindTimeout, provider, op, err)
	}
	return NewProviderError(KindUnavailable, provider, op, err)
}
