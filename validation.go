package creatorflow

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Validation errors
var (
	ErrEmptyUserText    = errors.New("user text cannot be empty")
	ErrNoReferenceImage = errors.New("no reference image supplied")
	ErrNoPlatforms      = errors.New("at least one platform is required")
	ErrInvalidMIMEType  = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge    = errors.New("image data exceeds maximum size")
	ErrNoStyleSamples   = errors.New("at least one text sample is required")
)

// MaxImageSize is the maximum allowed image size in bytes (20MB)
const MaxImageSize = 20 * 1024 * 1024

// fallbackMIMEType is declared for uploads that carry no usable type.
const fallbackMIMEType = "image/jpeg"

// ValidMIMETypes contains the supported image MIME types
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ValidationError reports a client-side input problem. It is raised before
// any provider call is made.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid request: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ValidateUserText validates the creator's free-text instruction.
func ValidateUserText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("user_text", ErrEmptyUserText)
	}
	return nil
}

// ValidatePlatforms returns the non-blank platform names, or an error when none remain.
func ValidatePlatforms(platforms []string) ([]string, error) {
	cleaned := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalid("platforms", ErrNoPlatforms)
	}
	return cleaned, nil
}

// ValidateInputImage validates an uploaded image and returns it with its
// MIME type resolved from content.
func ValidateInputImage(field string, img InputImage) (InputImage, error) {
	if len(img.Data) == 0 {
		return InputImage{}, invalid(field, ErrNoReferenceImage)
	}
	if len(img.Data) > MaxImageSize {
		return InputImage{}, invalid(field, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize))
	}

	mimeType := ResolveMIMEType(img)
	if !ValidMIMETypes[mimeType] {
		return InputImage{}, invalid(field, fmt.Errorf("%w: %s", ErrInvalidMIMEType, mimeType))
	}

	return InputImage{Data: img.Data, MIMEType: mimeType}, nil
}

// ResolveMIMEType prefers the type sniffed from the payload over the declared one.
// The declared type is used when the content does not sniff as an image, and
// image/jpeg when nothing was declared.
func ResolveMIMEType(img InputImage) string {
	if detected, ok := sniffImage(img.Data); ok {
		return detected
	}

	declared := strings.ToLower(strings.TrimSpace(img.MIMEType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "" || declared == "application/octet-stream" {
		return fallbackMIMEType
	}
	return declared
}

// sniffImage reports the image type detected from data's leading bytes.
func sniffImage(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	detected := http.DetectContentType(data)
	return detected, strings.HasPrefix(detected, "image/")
}
