package creatorflow

import (
	"math"
)

// imageTokenCost approximates the tokens an input image costs a multimodal model.
const imageTokenCost = 258

// TokenEstimator provides configurable token estimation strategies
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// SimpleTokenEstimator - fast approximation of token usage for rate budgets
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	charCount := len([]rune(text))
	tokenEstimate := float64(charCount) / 4.0
	tokenEstimate *= e.SafetyMargin

	return int(math.Ceil(tokenEstimate)) + 3
}

// estimateCompletion counts the prompt and the reserved completion budget.
func estimateCompletion(e TokenEstimator, req CompletionRequest) int {
	return e.EstimateTokens(req.SystemMessage) + e.EstimateTokens(req.UserMessage) + req.MaxTokens
}

// estimateSynthesis counts the prompt plus a fixed cost per input image.
func estimateSynthesis(e TokenEstimator, prompt string, images int) int {
	return e.EstimateTokens(prompt) + images*imageTokenCost
}
