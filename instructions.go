package creatorflow

import (
	"fmt"
	"strings"
	"text/template"
)

const promptSystemMessage = "You are an expert prompt engineer for image generation and image editing models " +
	"(Gemini, Flux, SDXL, DALL-E). You write ONE very clear prompt, in English, optimized for image editing. " +
	"You never add any comment around it."

const captionSystemMessage = "You are a social media copywriter for content creators. " +
	"You write engaging captions with a strong hook, natural emoji usage and relevant hashtags. " +
	"You reply with the caption only."

const styleSystemMessage = "You are an expert in writing-style analysis for content creators. " +
	"You extract the tone, the vibe keywords and the writing style, and you reply with JSON only."

var promptTemplate = template.Must(template.New("prompt").Parse(
	`Input images: {{if .Dual}}the user supplied two images: reference and product. The first image is the reference scene, the second image is the product to place into it.{{else}}the user supplied one reference image to edit.{{end}}
User request: {{.UserText}}

Return a single, clean, single-sentence image editing prompt in English that applies the request to {{if .Dual}}the reference image and integrates the product naturally{{else}}the reference image{{end}}.
No quotes, no extra text.`))

var captionTemplate = template.Must(template.New("caption").Parse(
	`Write a caption for a {{.FormatPhrase}} that will be published on {{.Platforms}}.
What the creator is making: {{.UserText}}

Open with a hook, keep it concise, use a few fitting emojis and end with relevant hashtags.
Return only the caption. No quotes, no extra text.`))

var styleTemplate = template.Must(template.New("style").Parse(
	`Analyze these text samples written by the creator:

{{.Samples}}

Return a JSON object with exactly these fields:
- "tone": the dominant tone (e.g. "Witty", "Professional", "Casual", "Inspirational")
- "vibe_keywords": 3 to 5 keywords describing the vibe (e.g. ["energetic", "relatable", "growth"])
- "writing_style": a short description of the style (e.g. "Short punchy sentences with emojis")
Return only the JSON object.`))

type promptData struct {
	UserText string
	Dual     bool
}

type captionData struct {
	UserText     string
	FormatPhrase string
	Platforms    string
}

type styleData struct {
	Samples string
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s instruction: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}

// quotePairs are the open/close quote pairs removed when they wrap a whole
// completion.
var quotePairs = [][2]string{
	{`"`, `"`},
	{"'", "'"},
	{"`", "`"},
	{"“", "”"},
	{"‘", "’"},
	{"«", "»"},
	{"„", "“"},
}

// cleanCompletion trims whitespace and any quote pair wrapping the whole text.
// Quotes that only open or only close the text are content and stay.
func cleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	for {
		unwrapped, ok := unquote(s)
		if !ok {
			return s
		}
		s = strings.TrimSpace(unwrapped)
	}
}

func unquote(s string) (string, bool) {
	for _, p := range quotePairs {
		l, r := p[0], p[1]
		if len(s) >= len(l)+len(r) && strings.HasPrefix(s, l) && strings.HasSuffix(s, r) {
			return s[len(l) : len(s)-len(r)], true
		}
	}
	return "", false
}

// singleLine collapses all whitespace runs, newlines included, to one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextSettings tunes one kind of text completion.
type TextSettings struct {
	// Model overrides the text provider's default model when set
	Model string

	Temperature float32
	MaxTokens   int
}

func clampFloat(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
