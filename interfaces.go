package creatorflow

import (
	"context"
	"time"
)

// ProviderGateway is the boundary between the pipeline and the generative backends.
type ProviderGateway interface {
	// CompleteText returns a trimmed, non-empty completion.
	CompleteText(ctx context.Context, req CompletionRequest) (string, error)

	// SynthesizeImage returns a non-empty image built from the prompt and the
	// ordered input images.
	SynthesizeImage(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error)
}

// TextProvider is implemented by text-completion backends.
// Implement this interface to add support for new chat-completion vendors.
type TextProvider interface {
	// Name identifies the backend in logs, metrics and errors.
	Name() string

	// CompleteText performs one chat completion. Failures should be returned
	// as *ProviderError with the vendor error classified.
	CompleteText(ctx context.Context, req CompletionRequest) (string, error)

	// Models returns the model definitions served by this provider.
	// The first model in the list is the default.
	Models() []ModelInfo
}

// ImageProvider is implemented by image-synthesis backends.
type ImageProvider interface {
	// Name identifies the backend in logs, metrics and errors.
	Name() string

	// SynthesizeImage performs one image generation/edit call.
	SynthesizeImage(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error)

	// Models returns the model definitions served by this provider.
	// The first model in the list is the default.
	Models() []ModelInfo
}

// MetricsRecorder receives pipeline and provider measurements.
type MetricsRecorder interface {
	ObserveStage(stage Stage, err error, duration time.Duration)
	ObservePipeline(err error, duration time.Duration)
	ObserveProviderCall(provider, op string, err error, duration time.Duration)
	IncProviderRetry(provider, op string, kind ErrorKind)
}

type noopRecorder struct{}

func (noopRecorder) ObserveStage(Stage, error, time.Duration)                  {}
func (noopRecorder) ObservePipeline(error, time.Duration)                      {}
func (noopRecorder) ObserveProviderCall(string, string, error, time.Duration) {}
func (noopRecorder) IncProviderRetry(string, string, ErrorKind)                {}
