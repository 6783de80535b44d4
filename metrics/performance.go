package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	ProcessTime      *prometheus.HistogramVec
	PipelineDuration *prometheus.HistogramVec
	ModelPasses      *prometheus.HistogramVec
	ModelPassTime    *prometheus.HistogramVec
	ResizeTime       *prometheus.HistogramVec
	PoolWaitTime     prometheus.Histogram
	HTTPRequestTime  *prometheus.HistogramVec
	ImageSizeBytes   *prometheus.HistogramVec
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		ProcessTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "image_process_time_seconds",
			Help:        "Time spent per processing operation (fetch, decode, encode)",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "upscale_pipeline_seconds",
			Help:        "Duration of a full upscale invocation (all model passes and the residual resize)",
			ConstLabels: constLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"policy"}),

		ModelPasses: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "upscale_model_passes",
			Help:        "Number of model passes per invocation",
			ConstLabels: constLabels,
			Buckets:     []float64{0, 1, 2, 3, 4, 5},
		}, []string{"policy"}),

		ModelPassTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "upscale_model_pass_seconds",
			Help:        "Duration of a single model pass",
			ConstLabels: constLabels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend"}),

		ResizeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "upscale_resize_seconds",
			Help:        "Duration of the residual resize",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"kernel"}),

		PoolWaitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "upscale_pool_wait_seconds",
			Help:        "Time spent waiting for a free pipeline",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		HTTPRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_time_seconds",
			Help:        "Origin fetch time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"hostname"}),

		ImageSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "image_size_bytes",
			Help:        "Encoded output size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760, 104857600}, // 1KB to 100MB
		}, []string{"format"}),
	}

	registry.MustRegister(
		metrics.ProcessTime,
		metrics.PipelineDuration,
		metrics.ModelPasses,
		metrics.ModelPassTime,
		metrics.ResizeTime,
		metrics.PoolWaitTime,
		metrics.HTTPRequestTime,
		metrics.ImageSizeBytes,
	)

	return metrics
}

// TimeFunction measures the execution time of fn under operation
func TimeFunction[T any](fn func() (T, error), operation string, metrics *PerformanceMetrics) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if metrics != nil {
		metrics.ProcessTime.WithLabelValues(operation).Observe(duration)
	}

	return result, err
}

// TimeHTTPRequest measures origin fetch duration
func TimeHTTPRequest(hostname string, metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		if metrics != nil {
			metrics.HTTPRequestTime.WithLabelValues(CleanHostname(hostname)).Observe(duration)
		}
	}
}

// ObservePlan records one finished pipeline invocation.
func (m *PerformanceMetrics) ObservePlan(policy string, passes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(policy).Observe(duration.Seconds())
	m.ModelPasses.WithLabelValues(policy).Observe(float64(passes))
}
