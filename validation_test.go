package creatorflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUserText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{
			name:    "valid text",
			text:    "make it a sunset beach",
			wantErr: nil,
		},
		{
			name:    "empty text",
			text:    "",
			wantErr: ErrEmptyUserText,
		},
		{
			name:    "whitespace only",
			text:    " \n\t",
			wantErr: ErrEmptyUserText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserText(tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateUserText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && !IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidatePlatforms(t *testing.T) {
	got, err := ValidatePlatforms([]string{" instagram ", "", "tiktok"})
	require.NoError(t, err)
	assert.Equal(t, []string{"instagram", "tiktok"}, got)

	_, err = ValidatePlatforms([]string{" ", ""})
	assert.ErrorIs(t, err, ErrNoPlatforms)

	_, err = ValidatePlatforms(nil)
	assert.ErrorIs(t, err, ErrNoPlatforms)
}

func TestValidateInputImage(t *testing.T) {
	tests := []struct {
		name     string
		img      InputImage
		wantMIME string
		wantErr  error
	}{
		{
			name:     "png sniffed from content",
			img:      InputImage{Data: pngData, MIMEType: "image/jpeg"},
			wantMIME: "image/png",
		},
		{
			name:     "jpeg without declared type",
			img:      InputImage{Data: jpegData},
			wantMIME: "image/jpeg",
		},
		{
			name:     "unsniffable data uses declared type",
			img:      InputImage{Data: []byte("opaque bytes"), MIMEType: "image/webp; charset=binary"},
			wantMIME: "image/webp",
		},
		{
			name:     "unsniffable data without declared type falls back to jpeg",
			img:      InputImage{Data: []byte("opaque bytes"), MIMEType: "application/octet-stream"},
			wantMIME: "image/jpeg",
		},
		{
			name:    "empty image",
			img:     InputImage{},
			wantErr: ErrNoReferenceImage,
		},
		{
			name:    "unsupported declared type",
			img:     InputImage{Data: []byte("opaque bytes"), MIMEType: "image/bmp"},
			wantErr: ErrInvalidMIMEType,
		},
		{
			name:    "image too large",
			img:     InputImage{Data: make([]byte, MaxImageSize+1), MIMEType: "image/png"},
			wantErr: ErrImageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateInputImage("file", tt.img)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "file", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, got.MIMEType)
			assert.Equal(t, tt.img.Data, got.Data)
		})
	}
}

func TestGenerationRequest(t *testing.T) {
	req := GenerationRequest{UserText: "x", ReferenceImage: InputImage{Data: pngData}}.WithDefaults()
	assert.Equal(t, FormatPost, req.Format)
	assert.Equal(t, []string{DefaultPlatform}, req.Platforms)
	assert.Equal(t, ContextSingleImage, req.ContextFlag())
	assert.NoError(t, req.Validate())

	req.ProductImage = &InputImage{}
	assert.Equal(t, ContextSingleImage, req.ContextFlag(), "empty product image counts as absent")

	req.ProductImage = &InputImage{Data: jpegData}
	assert.Equal(t, ContextDualImage, req.ContextFlag())

	req.ReferenceImage = InputImage{}
	err := req.Validate()
	assert.ErrorIs(t, err, ErrNoReferenceImage)
	assert.EqualError(t, err, "invalid request: file: no reference image supplied")
}

func TestFormatPhrase(t *testing.T) {
	assert.Equal(t, "square post", ParseFormat("").Phrase())
	assert.Equal(t, "square post", ParseFormat("post").Phrase())
	assert.Equal(t, "story", ParseFormat(" Story ").Phrase())
	assert.Equal(t, "short-form video", ParseFormat("REEL").Phrase())
	assert.Equal(t, "square post", ParseFormat("carousel").Phrase())
}

func TestSynthesizedImage_DataURI(t *testing.T) {
	tests := []struct {
		name   string
		img    SynthesizedImage
		prefix string
	}{
		{"declared type wins", SynthesizedImage{Data: pngData, MIMEType: "image/webp"}, "data:image/webp;base64,"},
		{"undeclared jpeg is sniffed", SynthesizedImage{Data: jpegData}, "data:image/jpeg;base64,"},
		{"undeclared png is sniffed", SynthesizedImage{Data: pngData}, "data:image/png;base64,"},
		{"unrecognized payload falls back to png", SynthesizedImage{Data: []byte("opaque bytes")}, "data:image/png;base64,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.img.DataURI(), tt.prefix), tt.img.DataURI())
		})
	}
}
