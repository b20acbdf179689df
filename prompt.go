package creatorflow

import (
	"context"
	"errors"
)

// Prompt completion bounds. Prompts are short and single-sentence, so the
// temperature stays low.
const (
	DefaultPromptTemperature float32 = 0.7
	DefaultPromptMaxTokens           = 300

	minPromptTemperature float32 = 0.5
	maxPromptTemperature float32 = 0.7
	minPromptMaxTokens           = 150
	maxPromptMaxTokens           = 300
)

var errEmptyPrompt = errors.New("prompt is empty after cleanup")

// PromptBuilder turns the creator's instruction into a master prompt for
// image synthesis.
type PromptBuilder struct {
	gateway  ProviderGateway
	settings TextSettings
}

// NewPromptBuilder creates a PromptBuilder. Zero settings take the defaults;
// out-of-range values are clamped.
func NewPromptBuilder(gateway ProviderGateway, settings TextSettings) *PromptBuilder {
	if settings.Temperature == 0 {
		settings.Temperature = DefaultPromptTemperature
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = DefaultPromptMaxTokens
	}
	settings.Temperature = clampFloat(settings.Temperature, minPromptTemperature, maxPromptTemperature)
	settings.MaxTokens = clampInt(settings.MaxTokens, minPromptMaxTokens, maxPromptMaxTokens)

	return &PromptBuilder{
		gateway:  gateway,
		settings: settings,
	}
}

// Instruction renders the completion request sent for userText and flag.
func (b *PromptBuilder) Instruction(userText string, flag ContextFlag) (CompletionRequest, error) {
	user, err := render(promptTemplate, promptData{
		UserText: userText,
		Dual:     flag == ContextDualImage,
	})
	if err != nil {
		return CompletionRequest{}, err
	}

	return CompletionRequest{
		SystemMessage: promptSystemMessage,
		UserMessage:   user,
		Model:         b.settings.Model,
		Temperature:   b.settings.Temperature,
		MaxTokens:     b.settings.MaxTokens,
	}, nil
}

// Build returns a single-line master prompt without surrounding quotes.
// Provider failures are returned as a *StageError for StagePrompt.
func (b *PromptBuilder) Build(ctx context.Context, userText string, flag ContextFlag) (string, error) {
	if err := ValidateUserText(userText); err != nil {
		return "", err
	}

	req, err := b.Instruction(userText, flag)
	if err != nil {
		return "", wrapStage(StagePrompt, err)
	}

	text, err := b.gateway.CompleteText(ctx, req)
	if err != nil {
		return "", wrapStage(StagePrompt, err)
	}

	prompt := singleLine(cleanCompletion(text))
	if prompt == "" {
		return "", wrapStage(StagePrompt, NewProviderError(KindInvalidResponse, "", OpCompleteText, errEmptyPrompt))
	}
	return prompt, nil
}
