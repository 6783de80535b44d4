package pool

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upscaler/pipeline"
)

func identityPipeline() (*pipeline.Pipeline, error) {
	model := pipeline.ModelFunc(func(_ context.Context, img image.Image) (image.Image, error) {
		return img, nil
	})
	resizer := pipeline.ResizerFunc(func(_ image.Image, w, h int, _ pipeline.Interpolation) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
	})
	return pipeline.New(model, 4, resizer), nil
}

func TestPipelines_AcquireRelease(t *testing.T) {
	p, err := NewPipelines(2, identityPipeline)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Size())

	a, err := p.Acquire(context.Background())
	require.NoError(t, err)
	b, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Zero(t, p.Available())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release(a)
	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, a, c)
}

func TestPipelines_BuildError(t *testing.T) {
	boom := errors.New("model file missing")
	_, err := NewPipelines(3, func() (*pipeline.Pipeline, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, err = NewPipelines(0, identityPipeline)
	require.ErrorIs(t, err, ErrNoPipelines)
}
