package creatorflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_Retryable(t *testing.T) {
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.False(t, KindUnavailable.Retryable())
	assert.False(t, KindInvalidResponse.Retryable())
	assert.False(t, KindNoOutput.Retryable())
}

func TestProviderError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewProviderError(KindRateLimited, "gemini", OpSynthesizeImage, cause)

	assert.Equal(t, "provider gemini: synthesize_image failed: RATE_LIMITED: quota exceeded", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsProviderError(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, KindRateLimited, KindOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestStageError(t *testing.T) {
	inner := NewProviderError(KindNoOutput, "gemini", OpSynthesizeImage, nil)
	err := wrapStage(StageImage, inner)

	assert.Equal(t, "image synthesis failed: provider gemini: synthesize_image failed: NO_OUTPUT", err.Error())

	stage, ok := StageOf(err)
	assert.True(t, ok)
	assert.Equal(t, StageImage, stage)

	// An existing stage is kept.
	again := wrapStage(StagePrompt, err)
	stage, _ = StageOf(again)
	assert.Equal(t, StageImage, stage)

	assert.Nil(t, wrapStage(StagePrompt, nil))

	_, ok = StageOf(errors.New("plain"))
	assert.False(t, ok)
}
