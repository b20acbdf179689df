// Package gemini provides an ImageProvider implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// For Vertex AI or other Google Cloud backends, a separate provider implementation
// could be created using the same SDK with a different backend configuration.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/mhpenta/creatorflow"
)

// ProviderName identifies this backend in logs, metrics and errors.
const ProviderName = "gemini"

// Model name constants - the actual API model names.
const (
	// APIModelNanoBanana2 is the actual API name for Gemini 3 Pro Image
	APIModelNanoBanana2 = "gemini-3-pro-image-preview"

	// APIModelNanoBanana1 is the actual API name for Gemini 2.5 Flash Image
	APIModelNanoBanana1 = "gemini-2.5-flash-image"
)

// defaultRetryAfter is used when the API does not say when to come back.
const defaultRetryAfter = 60 * time.Second

var (
	errEmptyResponse = errors.New("empty response from model")
	errNoImagePart   = errors.New("response contains no inline image")
)

// SafetySetting blocks content of one harm category at a threshold, using
// the Gemini enum names (e.g. "HARM_CATEGORY_HARASSMENT", "BLOCK_ONLY_HIGH").
type SafetySetting struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// Config configures the Gemini image provider.
type Config struct {
	// APIKey for the Gemini API. If empty, the SDK falls back to the
	// GOOGLE_API_KEY or GEMINI_API_KEY environment variables.
	APIKey string

	// Model is the API model name; defaults to the first entry of Models().
	Model string

	SafetySettings []SafetySetting
}

// contentGenerator is the part of the genai client this provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Synthesizer implements creatorflow.ImageProvider on Gemini image models.
type Synthesizer struct {
	models         contentGenerator
	model          string
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

// Ensure Synthesizer implements the interface.
var _ creatorflow.ImageProvider = (*Synthesizer)(nil)

// New creates a new Synthesizer from a Config.
func New(ctx context.Context, config Config) (*Synthesizer, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newSynthesizer(client.Models, config), nil
}

// NewWithAPIKey creates a synthesizer with an API key for the Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*Synthesizer, error) {
	return New(ctx, Config{APIKey: apiKey})
}

func newSynthesizer(models contentGenerator, config Config) *Synthesizer {
	s := &Synthesizer{
		models:         models,
		model:          config.Model,
		safetySettings: convertSafetySettings(config.SafetySettings),
	}
	if s.model == "" {
		s.model = s.Models()[0].APIModelName
	}
	return s
}

// SetSafetySettings replaces the safety settings sent with every request.
func (s *Synthesizer) SetSafetySettings(settings []SafetySetting) *Synthesizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safetySettings = convertSafetySettings(settings)
	return s
}

// Name returns "gemini".
func (s *Synthesizer) Name() string {
	return ProviderName
}

// Model returns the API model name requests are sent to.
func (s *Synthesizer) Model() string {
	return s.model
}

// SynthesizeImage edits the input images according to prompt. Images are sent
// in order, followed by the prompt.
func (s *Synthesizer) SynthesizeImage(ctx context.Context, prompt string, images []creatorflow.InputImage) (*creatorflow.SynthesizedImage, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     img.Data,
				MIMEType: img.MIMEType,
			},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	contents := []*genai.Content{
		{Role: "user", Parts: parts},
	}

	result, err := s.models.GenerateContent(ctx, s.model, contents, s.buildGenerateContentConfig())
	if err != nil {
		return nil, classifyError(err)
	}

	return parseResult(result)
}

// Models returns the model definitions supported by this provider.
// The first model (NanoBanana1) is the default.
func (s *Synthesizer) Models() []creatorflow.ModelInfo {
	return []creatorflow.ModelInfo{
		NanoBanana1Info,
		NanoBanana2Info,
	}
}

// Close releases any resources held by the synthesizer.
func (s *Synthesizer) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

func (s *Synthesizer) buildGenerateContentConfig() *genai.GenerateContentConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &genai.GenerateContentConfig{
		// Enable image output
		ResponseModalities: []string{"TEXT", "IMAGE"},
		SafetySettings:     s.safetySettings,
	}
}

func convertSafetySettings(settings []SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, st := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(st.Category),
			Threshold: genai.HarmBlockThreshold(st.Threshold),
		})
	}
	return result
}

// parseResult returns the first inline image of the response. A response
// without one, including a blocked prompt, is NO_OUTPUT.
func parseResult(result *genai.GenerateContentResponse) (*creatorflow.SynthesizedImage, error) {
	if result == nil || len(result.Candidates) == 0 {
		err := errEmptyResponse
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			err = fmt.Errorf("%w: prompt blocked: %s", errEmptyResponse, result.PromptFeedback.BlockReason)
		}
		return nil, noOutput(err)
	}

	var finishReason genai.FinishReason
	for _, candidate := range result.Candidates {
		if candidate.FinishReason != "" {
			finishReason = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &creatorflow.SynthesizedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}

	if finishReason != "" {
		return nil, noOutput(fmt.Errorf("%w (finish reason %s)", errNoImagePart, finishReason))
	}
	return nil, noOutput(errNoImagePart)
}

func noOutput(err error) error {
	return creatorflow.NewProviderError(creatorflow.KindNoOutput, ProviderName, creatorflow.OpSynthesizeImage, err)
}

// classifyError maps a Gemini API failure onto the gateway's error kinds.
func classifyError(err error) error {
	kind := creatorflow.KindUnavailable
	var retryAfter time.Duration

	var apiErr genai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = creatorflow.KindTimeout
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			kind = creatorflow.KindRateLimited
			// API doesn't reliably provide Retry-After
			retryAfter = defaultRetryAfter
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout ||
			apiErr.Status == "DEADLINE_EXCEEDED":
			kind = creatorflow.KindTimeout
		}
	}

	pErr := creatorflow.NewProviderError(kind, ProviderName, creatorflow.OpSynthesizeImage, err)
	pErr.RetryAfter = retryAfter
	return pErr
}
