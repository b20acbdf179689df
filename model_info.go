package creatorflow

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// ModelInfo contains the metadata the gateway needs about a backend model.
type ModelInfo struct {
	// Identity
	Name         string // Public model name (e.g., "nano-banana-1")
	Provider     string // Which provider serves this model
	APIModelName string // Actual API name (e.g., "gemini-2.5-flash-image")

	// ContextLength in tokens, 0 if unknown
	ContextLength int

	// RateLimits used to build the provider's default budget
	RateLimits RateLimits
}

// defaultModel returns the first model of a provider, the one used when a
// request names none.
func defaultModel(models []ModelInfo) (ModelInfo, bool) {
	if len(models) == 0 {
		return ModelInfo{}, false
	}
	return models[0], true
}

// activeModel returns the model a provider serves requests with. Providers
// that report a configured model through Model() are matched against their
// ModelInfo list; otherwise the default model is used.
func activeModel(p interface{ Models() []ModelInfo }) (ModelInfo, bool) {
	models := p.Models()
	if m, ok := p.(interface{ Model() string }); ok {
		name := m.Model()
		for _, info := range models {
			if info.APIModelName == name {
				return info, true
			}
		}
	}
	return defaultModel(models)
}
