package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"upscaler/mime"
)

// OutputType picks the response content type: WebP when requested, the
// source type when it can be re-encoded, PNG otherwise.
func OutputType(sourceType string, wantWebp bool) string {
	if wantWebp {
		return "image/webp"
	}
	if mime.IsEncodableMime(sourceType) {
		return sourceType
	}
	return "image/png"
}

// WriteImage encodes img as contentType. quality applies to lossy formats.
func WriteImage(w io.Writer, img image.Image, contentType string, quality int) error {
	switch contentType {
	case "image/webp":
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("failed to create webp encoder options: %w", err)
		}
		return webp.Encode(w, img, options)

	case "image/jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})

	case "image/png":
		return png.Encode(w, img)

	default:
		return fmt.Errorf("unsupported output format: %s", contentType)
	}
}
