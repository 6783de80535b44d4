package metrics

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upscaler/pipeline"
)

func TestHashURL(t *testing.T) {
	assert.Len(t, HashURL("https://example.com/a.png"), 16)
	assert.Equal(t, HashURL("https://example.com/a.png"), HashURL("https://example.com/a.png"))
	assert.NotEqual(t, HashURL("https://example.com/a.png"), HashURL("https://example.com/b.png"))
}

func TestCleanHostname(t *testing.T) {
	assert.Equal(t, "unknown", CleanHostname(""))
	assert.Equal(t, "example.com", CleanHostname("example.com:8443"))
}

func TestTimeFunctionAndPlan(t *testing.T) {
	registry := prometheus.NewRegistry()
	perf := InitializePerformanceMetrics(registry, prometheus.Labels{"service": "test"})

	boom := errors.New("decode failed")
	_, err := TimeFunction(func() (int, error) { return 0, boom }, "decode", perf)
	require.ErrorIs(t, err, boom)

	perf.ObservePlan("ceil", 2, 150*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(perf.ProcessTime))
	assert.Equal(t, 1, testutil.CollectAndCount(perf.ModelPasses))

	var nilPerf *PerformanceMetrics
	nilPerf.ObservePlan("ceil", 1, time.Second)
}

func TestInitializeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := InitializeMetrics(registry, nil)

	m.Failures.WithLabelValues("model").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("model")))
}

func TestMetrics_Recorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := InitializeMetrics(registry, nil)

	m.Served("url", "cdn.example.com:443", "https://cdn.example.com/a.png")
	m.Served("url", "cdn.example.com", "https://cdn.example.com/a.png")
	m.Cached("upload", "memory")
	m.Failed("model")

	served := m.SuccessfullyServed.WithLabelValues("url", "cdn.example.com", HashURL("https://cdn.example.com/a.png"))
	assert.Equal(t, 2.0, testutil.ToFloat64(served))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServedCached.WithLabelValues("upload", "memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("model")))
}

func TestInstrumentModelAndResizer(t *testing.T) {
	registry := prometheus.NewRegistry()
	perf := InitializePerformanceMetrics(registry, nil)

	double := pipeline.ModelFunc(func(ctx context.Context, img image.Image) (image.Image, error) {
		b := img.Bounds()
		return image.NewNRGBA(image.Rect(0, 0, b.Dx()*2, b.Dy()*2)), nil
	})
	crop := pipeline.ResizerFunc(func(img image.Image, width, height int, kind pipeline.Interpolation) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
	})

	p := pipeline.New(perf.InstrumentModel("interpolator", double), 2, perf.InstrumentResizer(crop), pipeline.WithPolicy(pipeline.CeilPower))
	result, err := p.Execute(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Plan.Passes)
	assert.Equal(t, 30, result.Image.Bounds().Dx())

	assert.Equal(t, 1, testutil.CollectAndCount(perf.ModelPassTime))
	assert.Equal(t, 1, testutil.CollectAndCount(perf.ResizeTime))

	var nilPerf *PerformanceMetrics
	assert.NotNil(t, nilPerf.InstrumentModel("remote", double))
	assert.NotNil(t, nilPerf.InstrumentResizer(crop))
}
