package gemini

import "github.com/mhpenta/creatorflow"

// NanoBanana1Info is the model info for Gemini 2.5 Flash Image (nano-banana-1),
// the default image editing model.
var NanoBanana1Info = creatorflow.ModelInfo{
	Name:         "nano-banana-1",
	Provider:     ProviderName,
	APIModelName: APIModelNanoBanana1,

	ContextLength: 1048576, // 1M tokens

	RateLimits: creatorflow.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},
}

// NanoBanana2Info is the model info for Gemini 3 Pro Image (nano-banana-2).
//
// Nano Banana Pro (official name: Gemini 3 Pro Image) is Google DeepMind's
// image generation and editing model, built on Gemini 3 Pro. It is slower and
// more expensive than Flash Image.
var NanoBanana2Info = creatorflow.ModelInfo{
	Name:         "nano-banana-2",
	Provider:     ProviderName,
	APIModelName: APIModelNanoBanana2,

	ContextLength: 1048576,

	RateLimits: creatorflow.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 360,
	},
}
