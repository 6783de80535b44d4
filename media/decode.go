package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/go-fitz"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"upscaler/mime"
)

// ReadImage decodes r according to contentType. Documents are rasterized from
// their first page.
func ReadImage(r io.Reader, contentType string) (image.Image, error) {
	switch contentType {
	case "image/jpeg":
		return jpeg.Decode(r)

	case "image/png":
		return png.Decode(r)

	case "image/gif":
		return gif.Decode(r)

	case "image/bmp":
		return bmp.Decode(r)

	case "image/tiff":
		return tiff.Decode(r)

	case "image/webp":
		return webp.Decode(r, &decoder.Options{})
	}

	if mime.IsDocumentMime(contentType) {
		doc, err := fitz.NewFromReader(r)
		if err != nil {
			return nil, err
		}

		defer doc.Close()

		if pageCount := doc.NumPage(); pageCount > 0 {
			return doc.Image(0)
		}

		return nil, fmt.Errorf("no pages found")
	}

	return nil, fmt.Errorf("unsupported image format: %s", contentType)
}

func ReadImageSlice(s []byte, contentType string) (image.Image, error) {
	return ReadImage(bytes.NewReader(s), contentType)
}
