package model

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
)

// Interpolator is a classical stand-in for a learned model: every pass
// enlarges by Scale with an nfnt/resize kernel. It needs no inference engine.
type Interpolator struct {
	Scale  float64
	Kernel resize.InterpolationFunction
}

func (m *Interpolator) Apply(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * m.Scale))
	h := int(math.Round(float64(b.Dy()) * m.Scale))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("interpolator: %dx%d at scale %g is empty", b.Dx(), b.Dy(), m.Scale)
	}

	return resize.Resize(uint(w), uint(h), img, m.Kernel), nil
}
