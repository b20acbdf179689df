package creatorflow

import "strings"

// Format is the social format a caption is written for.
type Format string

const (
	FormatPost  Format = "post"
	FormatStory Format = "story"
	FormatReel  Format = "reel"

	FormatDefault = FormatPost
)

// DefaultPlatform is used when a request names no platform.
const DefaultPlatform = "instagram"

// ParseFormat normalizes a user-supplied format value. Unknown values are
// returned as-is; Phrase falls back to the post wording for them.
func ParseFormat(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatDefault
	}
	return Format(s)
}

// Phrase returns the descriptive wording used in caption instructions.
// Unrecognized formats use the post wording.
func (f Format) Phrase() string {
	switch f {
	case FormatStory:
		return "story"
	case FormatReel:
		return "short-form video"
	default:
		return "square post"
	}
}

// String returns the format identifier.
func (f Format) String() string {
	return string(f)
}

// ContextFlag tells the prompt builder how many images the creator supplied.
type ContextFlag string

const (
	ContextSingleImage ContextFlag = "single-image"
	ContextDualImage   ContextFlag = "dual-image"
)

// String returns the flag identifier.
func (c ContextFlag) String() string {
	return string(c)
}

// InputImage represents an uploaded image.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType as declared by the uploader (e.g., "image/jpeg", "image/png")
	MIMEType string
}

// GenerationRequest is one creator request. It is owned by a single pipeline run.
type GenerationRequest struct {
	// UserText is the creator's free-text instruction (required)
	UserText string

	// ReferenceImage is the image to edit (required)
	ReferenceImage InputImage

	// ProductImage is an optional second image to integrate into the reference
	ProductImage *InputImage

	// Format of the target post (default "post")
	Format Format

	// Platforms the caption targets, in order (default ["instagram"])
	Platforms []string
}

// HasProductImage reports whether a non-empty product image was supplied.
func (r GenerationRequest) HasProductImage() bool {
	return r.ProductImage != nil && len(r.ProductImage.Data) > 0
}

// ContextFlag derives the image context from the presence of a product image.
func (r GenerationRequest) ContextFlag() ContextFlag {
	if r.HasProductImage() {
		return ContextDualImage
	}
	return ContextSingleImage
}

// WithDefaults returns a copy with the default format and platform filled in.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if r.Format == "" {
		r.Format = FormatDefault
	}
	if len(r.Platforms) == 0 {
		r.Platforms = []string{DefaultPlatform}
	}
	return r
}

// Validate checks the required fields of the request.
func (r GenerationRequest) Validate() error {
	if err := ValidateUserText(r.UserText); err != nil {
		return err
	}
	if len(r.ReferenceImage.Data) == 0 {
		return invalid("file", ErrNoReferenceImage)
	}
	return nil
}
