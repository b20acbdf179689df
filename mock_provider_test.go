package creatorflow

import (
	"context"
	"sync"
	"time"
)

// pngData sniffs as image/png.
var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake-png-body")

// jpegData sniffs as image/jpeg.
var jpegData = []byte("\xff\xd8\xff\xe0\x00\x10JFIFfake-jpeg-body")

// MockGateway is a mock implementation of ProviderGateway that counts calls.
type MockGateway struct {
	CompleteTextFunc    func(ctx context.Context, req CompletionRequest) (string, error)
	SynthesizeImageFunc func(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error)

	mu              sync.Mutex
	textCalls       []CompletionRequest
	synthesisCalls  int
	synthesisPrompt string
	synthesisImages []InputImage
}

func (m *MockGateway) CompleteText(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.textCalls = append(m.textCalls, req)
	m.mu.Unlock()

	if m.CompleteTextFunc != nil {
		return m.CompleteTextFunc(ctx, req)
	}
	return "ok", nil
}

func (m *MockGateway) SynthesizeImage(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error) {
	m.mu.Lock()
	m.synthesisCalls++
	m.synthesisPrompt = prompt
	m.synthesisImages = images
	m.mu.Unlock()

	if m.SynthesizeImageFunc != nil {
		return m.SynthesizeImageFunc(ctx, prompt, images)
	}
	return &SynthesizedImage{Data: pngData, MIMEType: "image/png"}, nil
}

func (m *MockGateway) TextCalls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.textCalls...)
}

func (m *MockGateway) SynthesisCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synthesisCalls
}

func (m *MockGateway) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textCalls) + m.synthesisCalls
}

// MockTextProvider is a mock implementation of TextProvider.
type MockTextProvider struct {
	NameValue        string
	CompleteTextFunc func(ctx context.Context, req CompletionRequest) (string, error)
	ModelsFunc       func() []ModelInfo
	CloseFunc        func() error

	mu    sync.Mutex
	calls int
}

func (m *MockTextProvider) Name() string {
	if m.NameValue == "" {
		return "mock-text"
	}
	return m.NameValue
}

func (m *MockTextProvider) CompleteText(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompleteTextFunc != nil {
		return m.CompleteTextFunc(ctx, req)
	}
	return "ok", nil
}

func (m *MockTextProvider) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{}
}

func (m *MockTextProvider) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockTextProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockImageProvider is a mock implementation of ImageProvider.
type MockImageProvider struct {
	NameValue           string
	SynthesizeImageFunc func(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error)
	ModelsFunc          func() []ModelInfo

	mu    sync.Mutex
	calls int
}

func (m *MockImageProvider) Name() string {
	if m.NameValue == "" {
		return "mock-image"
	}
	return m.NameValue
}

func (m *MockImageProvider) SynthesizeImage(ctx context.Context, prompt string, images []InputImage) (*SynthesizedImage, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.SynthesizeImageFunc != nil {
		return m.SynthesizeImageFunc(ctx, prompt, images)
	}
	return &SynthesizedImage{Data: pngData, MIMEType: "image/png"}, nil
}

func (m *MockImageProvider) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{}
}

func (m *MockImageProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingMetrics is a MetricsRecorder that keeps what it was given.
type recordingMetrics struct {
	mu       sync.Mutex
	stages   map[Stage]error
	runs     []error
	calls    int
	retryCnt int
}

func (r *recordingMetrics) ObserveStage(stage Stage, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = make(map[Stage]error)
	}
	r.stages[stage] = err
}

func (r *recordingMetrics) ObservePipeline(err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, err)
}

func (r *recordingMetrics) ObserveProviderCall(string, string, error, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingMetrics) IncProviderRetry(string, string, ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCnt++
}

func (r *recordingMetrics) retries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCnt
}

func (r *recordingMetrics) providerCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recordingMetrics) observed(s Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stages[s]
	return ok
}

func (r *recordingMetrics) pipelineRuns() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.runs...)
}
