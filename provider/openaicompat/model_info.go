package openaicompat

import "github.com/mhpenta/creatorflow"

// Llama31_8BInfo is the default text model. Featherless plans limit
// concurrency rather than throughput, so no rate budget is declared.
var Llama31_8BInfo = creatorflow.ModelInfo{
	Name:          "llama-3.1-8b-instruct",
	Provider:      ProviderName,
	APIModelName:  APIModelLlama31_8B,
	ContextLength: 16384,
}

var Llama31_70BInfo = creatorflow.ModelInfo{
	Name:          "llama-3.1-70b-instruct",
	Provider:      ProviderName,
	APIModelName:  APIModelLlama31_70B,
	ContextLength: 16384,
}
