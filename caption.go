package creatorflow

import (
	"context"
	"errors"
	"strings"
)

// Caption completion bounds. Captions run warmer for stylistic variety.
const (
	DefaultCaptionTemperature float32 = 0.8
	DefaultCaptionMaxTokens           = 400

	minCaptionMaxTokens = 300
	maxCaptionMaxTokens = 500
)

var errEmptyCaption = errors.New("caption is empty after cleanup")

// CaptionGenerator writes the social caption. It does not depend on the
// master prompt and can run alongside the PromptBuilder.
type CaptionGenerator struct {
	gateway  ProviderGateway
	settings TextSettings
}

// NewCaptionGenerator creates a CaptionGenerator. Zero settings take the defaults.
func NewCaptionGenerator(gateway ProviderGateway, settings TextSettings) *CaptionGenerator {
	if settings.Temperature == 0 {
		settings.Temperature = DefaultCaptionTemperature
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = DefaultCaptionMaxTokens
	}
	settings.Temperature = clampFloat(settings.Temperature, 0, 2)
	settings.MaxTokens = clampInt(settings.MaxTokens, minCaptionMaxTokens, maxCaptionMaxTokens)

	return &CaptionGenerator{
		gateway:  gateway,
		settings: settings,
	}
}

// Instruction renders the completion request for a caption.
func (c *CaptionGenerator) Instruction(userText string, format Format, platforms []string) (CompletionRequest, error) {
	user, err := render(captionTemplate, captionData{
		UserText:     userText,
		FormatPhrase: format.Phrase(),
		Platforms:    strings.Join(platforms, ", "),
	})
	if err != nil {
		return CompletionRequest{}, err
	}

	return CompletionRequest{
		SystemMessage: captionSystemMessage,
		UserMessage:   user,
		Model:         c.settings.Model,
		Temperature:   c.settings.Temperature,
		MaxTokens:     c.settings.MaxTokens,
	}, nil
}

// Build returns a trimmed, unquoted caption. An unknown format uses the post
// wording. Provider failures are returned as a *StageError for StageCaption.
func (c *CaptionGenerator) Build(ctx context.Context, userText string, format Format, platforms []string) (string, error) {
	if err := ValidateUserText(userText); err != nil {
		return "", err
	}
	platforms, err := ValidatePlatforms(platforms)
	if err != nil {
		return "", err
	}

	req, err := c.Instruction(userText, format, platforms)
	if err != nil {
		return "", wrapStage(StageCaption, err)
	}

	text, err := c.gateway.CompleteText(ctx, req)
	if err != nil {
		return "", wrapStage(StageCaption, err)
	}

	caption := cleanCompletion(text)
	if caption == "" {
		return "", wrapStage(StageCaption, NewProviderError(KindInvalidResponse, "", OpCompleteText, errEmptyCaption))
	}
	return caption, nil
}
