// Package resample implements the residual resize used after the model passes.
package resample

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"upscaler/pipeline"
)

var ErrInvalidSize = errors.New("target dimensions must be at least 1x1")

// areaKernel is a box filter. draw.Kernel widens the support by the reduction
// ratio when shrinking, which turns it into an area average.
var areaKernel = &draw.Kernel{
	Support: 0.5,
	At: func(t float64) float64 {
		return 1
	},
}

// Resampler resizes with an area average for reductions and a windowed-sinc
// kernel for enlargements.
type Resampler struct {
	Upscale resize.InterpolationFunction
}

// New returns a Resampler that enlarges with Lanczos3.
func New() *Resampler {
	return &Resampler{Upscale: resize.Lanczos3}
}

// Resize implements pipeline.Resizer.
func (r *Resampler) Resize(img image.Image, width int, height int, kind pipeline.Interpolation) (image.Image, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("source image is empty")
	}

	switch kind {
	case pipeline.InterpolationArea:
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		areaKernel.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		return dst, nil

	case pipeline.InterpolationLanczos:
		return resize.Resize(uint(width), uint(height), img, r.Upscale), nil

	default:
		return nil, fmt.Errorf("unsupported interpolation: %s", kind)
	}
}

// Kernel maps a kernel name to an nfnt/resize interpolation function.
func Kernel(name string) (resize.InterpolationFunction, error) {
	switch name {
	case "nearest":
		return resize.NearestNeighbor, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "mitchell":
		return resize.MitchellNetravali, nil
	case "lanczos2":
		return resize.Lanczos2, nil
	case "lanczos3", "lanczos", "":
		return resize.Lanczos3, nil
	default:
		return 0, fmt.Errorf("unknown kernel: %s", name)
	}
}
