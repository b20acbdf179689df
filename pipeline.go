package creatorflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is the progress of one generation run.
type State string

const (
	StateInit         State = "INIT"
	StatePromptReady  State = "PROMPT_READY"
	StateCaptionReady State = "CAPTION_READY"
	StateImageReady   State = "IMAGE_READY"
	StateAssembled    State = "ASSEMBLED"
	StateFailed       State = "FAILED"
)

// ErrIllegalTransition is returned when a run is moved to a state that does
// not follow its current one.
var ErrIllegalTransition = errors.New("illegal pipeline state transition")

var transitions = map[State]State{
	StateInit:         StatePromptReady,
	StatePromptReady:  StateCaptionReady,
	StateCaptionReady: StateImageReady,
	StateImageReady:   StateAssembled,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateAssembled || s == StateFailed
}

// CanTransition reports whether a run in state s may move to next.
// FAILED is reachable from every non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return transitions[s] == next
}

// StateObserver is called on every state change of a run.
type StateObserver func(ctx context.Context, from, to State)

// run tracks the state of a single Generate call.
type run struct {
	ctx      context.Context
	state    State
	observer StateObserver
}

func (r *run) transition(to State) error {
	if !r.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, to)
	}
	from := r.state
	r.state = to
	if r.observer != nil {
		r.observer(r.ctx, from, to)
	}
	return nil
}

func (r *run) fail() {
	if !r.state.Terminal() {
		_ = r.transition(StateFailed)
	}
}

// Pipeline assembles a GenerationResult from a GenerationRequest. The master
// prompt and the caption are built concurrently; the image is synthesized once
// the prompt exists. Any stage failure fails the whole run and no partial
// result is returned.
//
// A Pipeline is safe for concurrent use; every Generate call has its own state.
type Pipeline struct {
	prompt  *PromptBuilder
	caption *CaptionGenerator
	image   *ImageSynthesizer

	promptSettings  TextSettings
	captionSettings TextSettings

	observer StateObserver
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// PipelineOption configures the Pipeline.
type PipelineOption func(*Pipeline)

// WithPromptSettings tunes the master prompt completion.
func WithPromptSettings(s TextSettings) PipelineOption {
	return func(p *Pipeline) {
		p.promptSettings = s
	}
}

// WithCaptionSettings tunes the caption completion.
func WithCaptionSettings(s TextSettings) PipelineOption {
	return func(p *Pipeline) {
		p.captionSettings = s
	}
}

// WithStateObserver registers a callback for state changes.
func WithStateObserver(o StateObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithPipelineLogger sets a structured logger for the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipelineMetrics records stage and run durations.
func WithPipelineMetrics(m MetricsRecorder) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPipeline creates a Pipeline whose stages share gateway.
func NewPipeline(gateway ProviderGateway, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		logger:  slog.Default(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.prompt = NewPromptBuilder(gateway, p.promptSettings)
	p.caption = NewCaptionGenerator(gateway, p.captionSettings)
	p.image = NewImageSynthesizer(gateway)
	return p
}

// Generate runs the pipeline for req. Input problems are returned as a
// *ValidationError before any provider call; stage failures as a *StageError.
func (p *Pipeline) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	start := time.Now()
	r := &run{ctx: ctx, state: StateInit, observer: p.observer}

	result, err := p.generate(ctx, r, req.WithDefaults())
	duration := time.Since(start)
	p.metrics.ObservePipeline(err, duration)

	if err != nil {
		r.fail()
		attrs := []any{
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		}
		if stage, ok := StageOf(err); ok {
			attrs = append(attrs, "stage", string(stage), "kind", KindOf(err).String())
		}
		if IsValidationError(err) {
			p.logger.WarnContext(ctx, "generation rejected", attrs...)
		} else {
			p.logger.ErrorContext(ctx, "generation failed", attrs...)
		}
		return nil, err
	}

	p.logger.InfoContext(ctx, "generation completed",
		"duration_ms", duration.Milliseconds(),
		"prompt_length", len(result.MasterPrompt),
		"caption_length", len(result.Caption),
	)
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, r *run, req GenerationRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	platforms, err := ValidatePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}
	if _, err := p.image.Images(req.ReferenceImage, req.ProductImage); err != nil {
		return nil, err
	}
	flag := req.ContextFlag()

	p.logger.DebugContext(ctx, "starting generation",
		"context", flag.String(),
		"format", req.Format.String(),
		"platforms", platforms,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prompt, caption string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prompt, err = p.timed(StagePrompt, func() (string, error) {
			return p.prompt.Build(gctx, req.UserText, flag)
		})
		return err
	})
	g.Go(func() error {
		var err error
		caption, err = p.timed(StageCaption, func() (string, error) {
			return p.caption.Build(gctx, req.UserText, req.Format, platforms)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := r.transition(StatePromptReady); err != nil {
		return nil, err
	}
	if err := r.transition(StateCaptionReady); err != nil {
		return nil, err
	}
	// A caller that went away while the text stages ran gets no image stage.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imgStart := time.Now()
	img, err := p.image.Synthesize(ctx, prompt, req.ReferenceImage, req.ProductImage)
	p.metrics.ObserveStage(StageImage, err, time.Since(imgStart))
	if err != nil {
		return nil, err
	}
	if err := r.transition(StateImageReady); err != nil {
		return nil, err
	}

	result := &GenerationResult{
		MasterPrompt: prompt,
		ImageURL:     img.DataURI(),
		Caption:      caption,
	}
	if err := r.transition(StateAssembled); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) timed(stage Stage, fn func() (string, error)) (string, error) {
	start := time.Now()
	out, err := fn()
	p.metrics.ObserveStage(stage, err, time.Since(start))
	return out, err
}
