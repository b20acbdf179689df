package creatorflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Style analysis completion settings.
const (
	DefaultStyleTemperature float32 = 0.5
	DefaultStyleMaxTokens           = 200

	sampleSeparator = "\n---\n"
)

var errNoStyleJSON = errors.New("no JSON object in style analysis")

// StyleAnalyzer extracts a writing-style profile from a creator's text samples.
type StyleAnalyzer struct {
	gateway  ProviderGateway
	settings TextSettings
}

// NewStyleAnalyzer creates a StyleAnalyzer. Zero settings take the defaults.
func NewStyleAnalyzer(gateway ProviderGateway, settings TextSettings) *StyleAnalyzer {
	if settings.Temperature == 0 {
		settings.Temperature = DefaultStyleTemperature
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = DefaultStyleMaxTokens
	}
	return &StyleAnalyzer{
		gateway:  gateway,
		settings: settings,
	}
}

// Analyze returns the tone, vibe keywords and writing style of samples.
// Blank samples are ignored.
func (a *StyleAnalyzer) Analyze(ctx context.Context, samples []string) (*StyleProfile, error) {
	kept := make([]string, 0, len(samples))
	for _, s := range samples {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, invalid("text_samples", ErrNoStyleSamples)
	}

	user, err := render(styleTemplate, styleData{Samples: strings.Join(kept, sampleSeparator)})
	if err != nil {
		return nil, wrapStage(StageStyle, err)
	}

	text, err := a.gateway.CompleteText(ctx, CompletionRequest{
		SystemMessage: styleSystemMessage,
		UserMessage:   user,
		Model:         a.settings.Model,
		Temperature:   a.settings.Temperature,
		MaxTokens:     a.settings.MaxTokens,
	})
	if err != nil {
		return nil, wrapStage(StageStyle, err)
	}

	profile, err := parseStyleProfile(text)
	if err != nil {
		return nil, wrapStage(StageStyle, NewProviderError(KindInvalidResponse, "", OpCompleteText, err))
	}
	return profile, nil
}

// parseStyleProfile decodes the first JSON object in text, with or without a
// markdown code fence around it.
func parseStyleProfile(text string) (*StyleProfile, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, errNoStyleJSON
	}

	var profile StyleProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode style analysis: %w", err)
	}

	profile.Tone = strings.TrimSpace(profile.Tone)
	profile.WritingStyle = strings.TrimSpace(profile.WritingStyle)
	keywords := profile.VibeKeywords[:0]
	for _, k := range profile.VibeKeywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	profile.VibeKeywords = keywords

	if profile.Tone == "" {
		return nil, errors.New("style analysis has no tone")
	}
	if len(profile.VibeKeywords) == 0 {
		return nil, errors.New("style analysis has no vibe keywords")
	}
	return &profile, nil
}

func extractJSONObject(text string) string {
	if i := strings.Index(text, "```"); i >= 0 {
		body := text[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			text = body[:j]
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
