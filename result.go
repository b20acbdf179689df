package creatorflow

import "encoding/base64"

// SynthesizedImage is the image returned by the synthesis backend.
type SynthesizedImage struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType as declared by the provider
	MIMEType string
}

// DataURI encodes the image as data:<mime>;base64,<payload>. Without a
// declared type the payload is sniffed, falling back to image/png.
func (img *SynthesizedImage) DataURI() string {
	mimeType := img.MIMEType
	if mimeType == "" {
		detected, ok := sniffImage(img.Data)
		if !ok {
			detected = "image/png"
		}
		mimeType = detected
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// GenerationResult is the bundle returned to the caller.
type GenerationResult struct {
	MasterPrompt string `json:"master_prompt"`
	ImageURL     string `json:"image_url"`
	Caption      string `json:"caption"`
}

// StyleProfile describes a creator's writing style.
type StyleProfile struct {
	Tone         string   `json:"tone"`
	VibeKeywords []string `json:"vibe_keywords"`
	WritingStyle string   `json:"writing_style"`
}

// CompletionRequest is a single text-completion call.
type CompletionRequest struct {
	SystemMessage string
	UserMessage   string

	// Model overrides the provider's default model when set
	Model string

	Temperature float32
	MaxTokens   int
}
