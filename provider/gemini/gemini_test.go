package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mhpenta/creatorflow"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig

	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func imageResponse(data []byte, mimeType string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{Text: "Here is your edited image."},
					{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				},
			},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestSynthesizer_SynthesizeImage(t *testing.T) {
	fake := &fakeModels{resp: imageResponse([]byte("png-bytes"), "image/png")}
	s := newSynthesizer(fake, Config{
		SafetySettings: []SafetySetting{{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"}},
	})

	img, err := s.SynthesizeImage(context.Background(), "put the mug on the desk", []creatorflow.InputImage{
		{Data: []byte("ref"), MIMEType: "image/jpeg"},
		{Data: []byte("product"), MIMEType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img.Data)
	assert.Equal(t, "image/png", img.MIMEType)

	assert.Equal(t, APIModelNanoBanana1, fake.model, "flash image is the default model")
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, []byte("ref"), parts[0].InlineData.Data)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("product"), parts[1].InlineData.Data)
	assert.Equal(t, "put the mug on the desk", parts[2].Text)

	assert.Equal(t, []string{"TEXT", "IMAGE"}, fake.config.ResponseModalities)
	require.Len(t, fake.config.SafetySettings, 1)
	assert.Equal(t, genai.HarmCategory("HARM_CATEGORY_HARASSMENT"), fake.config.SafetySettings[0].Category)
}

func TestSynthesizer_ModelOverride(t *testing.T) {
	fake := &fakeModels{resp: imageResponse([]byte("x"), "image/png")}
	s := newSynthesizer(fake, Config{Model: APIModelNanoBanana2})

	_, err := s.SynthesizeImage(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, APIModelNanoBanana2, fake.model)
	assert.Equal(t, APIModelNanoBanana2, s.Model())
}

func TestParseResult_NoOutput(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{name: "nil response", resp: nil},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}},
		{
			name: "blocked prompt",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
		},
		{
			name: "text only",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot do that."}}},
				}},
			},
		},
		{
			name: "empty inline data",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content:      &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png"}}}},
					FinishReason: genai.FinishReasonSafety,
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResult(tt.resp)
			require.Error(t, err)
			assert.Equal(t, creatorflow.KindNoOutput, creatorflow.KindOf(err))
		})
	}
}

func TestParseResult_SkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Thought: true, InlineData: &genai.Blob{Data: []byte("draft"), MIMEType: "image/png"}},
				{InlineData: &genai.Blob{Data: []byte("final"), MIMEType: "image/webp"}},
			}},
		}},
	}

	img, err := parseResult(resp)
	require.NoError(t, err)
	assert.Equal(t, []byte("final"), img.Data)
	assert.Equal(t, "image/webp", img.MIMEType)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       creatorflow.ErrorKind
		retryAfter time.Duration
	}{
		{
			name:       "429",
			err:        genai.APIError{Code: 429, Message: "quota"},
			want:       creatorflow.KindRateLimited,
			retryAfter: defaultRetryAfter,
		},
		{
			name:       "resource exhausted",
			err:        fmt.Errorf("call: %w", genai.APIError{Status: "RESOURCE_EXHAUSTED"}),
			want:       creatorflow.KindRateLimited,
			retryAfter: defaultRetryAfter,
		},
		{
			name: "504",
			err:  genai.APIError{Code: 504, Status: "DEADLINE_EXCEEDED"},
			want: creatorflow.KindTimeout,
		},
		{
			name: "context deadline",
			err:  fmt.Errorf("do request: %w", context.DeadlineExceeded),
			want: creatorflow.KindTimeout,
		},
		{
			name: "500",
			err:  genai.APIError{Code: 500, Status: "INTERNAL"},
			want: creatorflow.KindUnavailable,
		},
		{
			name: "network",
			err:  errors.New("dial tcp: connection refused"),
			want: creatorflow.KindUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.err)

			var pErr *creatorflow.ProviderError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.want, pErr.Kind)
			assert.Equal(t, ProviderName, pErr.Provider)
			assert.Equal(t, creatorflow.OpSynthesizeImage, pErr.Op)
			assert.Equal(t, tt.retryAfter, pErr.RetryAfter)
		})
	}
}

func TestSynthesizer_ClassifiesCallErrors(t *testing.T) {
	fake := &fakeModels{err: genai.APIError{Code: 429}}
	s := newSynthesizer(fake, Config{})

	_, err := s.SynthesizeImage(context.Background(), "p", nil)
	assert.Equal(t, creatorflow.KindRateLimited, creatorflow.KindOf(err))
}
