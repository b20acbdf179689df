// Package openaicompat provides a TextProvider for OpenAI-compatible
// chat-completion endpoints. The default endpoint is Featherless.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/mhpenta/creatorflow"
)

const (
	// ProviderName identifies this backend in logs, metrics and errors.
	ProviderName = "featherless"

	// DefaultBaseURL is the Featherless OpenAI-compatible API.
	DefaultBaseURL = "https://api.featherless.ai/v1"
)

// Model name constants - the actual API model names.
const (
	APIModelLlama31_8B  = "meta-llama/Meta-Llama-3.1-8B-Instruct"
	APIModelLlama31_70B = "meta-llama/Meta-Llama-3.1-70B-Instruct"
)

var errNoChoices = errors.New("completion has no choices")

// Config configures the provider.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL of the API (default: DefaultBaseURL)
	BaseURL string

	// Name overrides ProviderName, e.g. when pointing at another vendor.
	Name string

	// HTTPClient for API calls (optional)
	HTTPClient *http.Client
}

// Completer implements creatorflow.TextProvider with go-openai.
//
// Thread Safety: Completer is safe for concurrent use.
type Completer struct {
	client *openai.Client
	name   string
}

// Ensure Completer implements the interface.
var _ creatorflow.TextProvider = (*Completer)(nil)

// New creates a Completer.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", creatorflow.ErrProviderNotConfigured)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if clientConfig.BaseURL == "" {
		clientConfig.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	name := cfg.Name
	if name == "" {
		name = ProviderName
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientConfig),
		name:   name,
	}, nil
}

// Name returns the provider name.
func (c *Completer) Name() string {
	return c.name
}

// CompleteText sends one chat completion with a system and a user message.
func (c *Completer) CompleteText(ctx context.Context, req creatorflow.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.Models()[0].APIModelName
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", c.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", creatorflow.NewProviderError(creatorflow.KindInvalidResponse, c.name, creatorflow.OpCompleteText, errNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

// Models returns the model definitions served by this provider.
// The first model (Llama 3.1 8B Instruct) is the default.
func (c *Completer) Models() []creatorflow.ModelInfo {
	return []creatorflow.ModelInfo{
		Llama31_8BInfo,
		Llama31_70BInfo,
	}
}

// classifyError maps go-openai failures onto the gateway's error kinds.
func (c *Completer) classifyError(err error) error {
	kind := creatorflow.KindUnavailable

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = creatorflow.KindTimeout
	case status == http.StatusTooManyRequests:
		kind = creatorflow.KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = creatorflow.KindTimeout
	}

	return creatorflow.NewProviderError(kind, c.name, creatorflow.OpCompleteText, err)
}
