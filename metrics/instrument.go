package metrics

import (
	"context"
	"image"
	"time"

	"upscaler/pipeline"
)

// InstrumentModel times every pass of model under the backend label.
// A nil receiver returns model unchanged.
func (m *PerformanceMetrics) InstrumentModel(backend string, model pipeline.Model) pipeline.Model {
	if m == nil {
		return model
	}
	return pipeline.ModelFunc(func(ctx context.Context, img image.Image) (image.Image, error) {
		start := time.Now()
		out, err := model.Apply(ctx, img)
		m.ModelPassTime.WithLabelValues(backend).Observe(time.Since(start).Seconds())
		return out, err
	})
}

// InstrumentResizer times residual resizes by kernel.
func (m *PerformanceMetrics) InstrumentResizer(resizer pipeline.Resizer) pipeline.Resizer {
	if m == nil {
		return resizer
	}
	return pipeline.ResizerFunc(func(img image.Image, width, height int, kind pipeline.Interpolation) (image.Image, error) {
		start := time.Now()
		out, err := resizer.Resize(img, width, height, kind)
		m.ResizeTime.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
		return out, err
	})
}
