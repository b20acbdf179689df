package creatorflow

import (
	"errors"
	"fmt"
	"time"
)

// ErrProviderNotConfigured is returned when a required provider is missing.
var ErrProviderNotConfigured = errors.New("provider not configured")

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	KindUnavailable     ErrorKind = "UNAVAILABLE"
	KindRateLimited     ErrorKind = "RATE_LIMITED"
	KindTimeout         ErrorKind = "TIMEOUT"
	KindInvalidResponse ErrorKind = "INVALID_RESPONSE"
	KindNoOutput        ErrorKind = "NO_OUTPUT"
)

// String returns the kind identifier.
func (k ErrorKind) String() string {
	return string(k)
}

// Retryable reports whether a failure of this kind is transient.
// INVALID_RESPONSE and NO_OUTPUT are content issues and repeat deterministically.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindTimeout
}

// ProviderError is returned by a ProviderGateway when a backend call fails.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string        // Backend that failed (e.g. "gemini")
	Op         string        // "complete_text" or "synthesize_image"
	RetryAfter time.Duration // Hint for RATE_LIMITED, zero if unknown
	Err        error         // Underlying error from the provider
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s: %s failed: %s", e.providerName(), e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed if repeated.
func (e *ProviderError) Retryable() bool {
	return e.Kind.Retryable()
}

func (e *ProviderError) providerName() string {
	if e.Provider == "" {
		return "unknown"
	}
	return e.Provider
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(kind ErrorKind, provider, op string, err error) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}

// IsProviderError checks if an error is a ProviderError.
func IsProviderError(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr)
}

// KindOf returns the ErrorKind carried by err, or "" when err holds no ProviderError.
func KindOf(err error) ErrorKind {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return ""
}

// Stage names a pipeline step that talks to a provider.
type Stage string

const (
	StagePrompt  Stage = "prompt"
	StageCaption Stage = "caption"
	StageImage   Stage = "image"
	StageStyle   Stage = "style"
)

// StageError wraps a failure of one pipeline stage. A StageError with
// StagePrompt is a prompt build error, StageCaption a caption build error and
// StageImage an image synthesis error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.description(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind returns the provider error kind behind the stage failure, if any.
func (e *StageError) Kind() ErrorKind {
	return KindOf(e.Err)
}

func (s Stage) description() string {
	switch s {
	case StagePrompt:
		return "prompt build failed"
	case StageCaption:
		return "caption build failed"
	case StageImage:
		return "image synthesis failed"
	case StageStyle:
		return "style analysis failed"
	default:
		return string(s) + " failed"
	}
}

// StageOf returns the failing stage recorded in err.
func StageOf(err error) (Stage, bool) {
	var sErr *StageError
	if errors.As(err, &sErr) {
		return sErr.Stage, true
	}
	return "", false
}

func wrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var sErr *StageError
	if errors.As(err, &sErr) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
