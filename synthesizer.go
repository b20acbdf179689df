package creatorflow

import (
	"context"
)

// ImageSynthesizer turns a master prompt and the uploaded images into the
// final image.
type ImageSynthesizer struct {
	gateway ProviderGateway
}

// NewImageSynthesizer creates an ImageSynthesizer.
func NewImageSynthesizer(gateway ProviderGateway) *ImageSynthesizer {
	return &ImageSynthesizer{gateway: gateway}
}

// Images validates the uploads and returns them in provider order: reference
// first, then the product image when one is present. MIME types are resolved
// from content.
func (s *ImageSynthesizer) Images(reference InputImage, product *InputImage) ([]InputImage, error) {
	ref, err := ValidateInputImage("file", reference)
	if err != nil {
		return nil, err
	}

	images := []InputImage{ref}
	if product != nil && len(product.Data) > 0 {
		prod, err := ValidateInputImage("product_file", *product)
		if err != nil {
			return nil, err
		}
		images = append(images, prod)
	}
	return images, nil
}

// Synthesize validates the inputs before any provider call, then asks the
// gateway for the image. Provider failures are returned as a *StageError for
// StageImage.
func (s *ImageSynthesizer) Synthesize(ctx context.Context, prompt string, reference InputImage, product *InputImage) (*SynthesizedImage, error) {
	images, err := s.Images(reference, product)
	if err != nil {
		return nil, err
	}

	img, err := s.gateway.SynthesizeImage(ctx, prompt, images)
	if err != nil {
		return nil, wrapStage(StageImage, err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, wrapStage(StageImage, NewProviderError(KindNoOutput, "", OpSynthesizeImage, errEmptyImage))
	}
	return img, nil
}
