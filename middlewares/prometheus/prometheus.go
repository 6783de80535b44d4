// Package prometheus instruments fiber requests and serves the registry.
package prometheus

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prometheus struct {
	registry    *prometheus.Registry
	constLabels prometheus.Labels

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	skipPath string
}

// New creates a registry labelled with the service name and registers the
// request metrics plus the Go and process collectors.
func New(serviceName string) *Prometheus {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	p := &Prometheus{
		registry:    registry,
		constLabels: constLabels,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Count of all HTTP requests",
			ConstLabels: constLabels,
		}, []string{"status_code", "method", "route"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of all HTTP requests",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"status_code", "method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_progress",
			Help:        "Number of HTTP requests currently being served",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		p.requestsTotal,
		p.requestDuration,
		p.requestsInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

// RegisterAt serves the registry at url. Requests to url are not instrumented.
func (p *Prometheus) RegisterAt(app fiber.Router, url string) {
	p.skipPath = url
	app.Get(url, adaptor.HTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})))
}

func (p *Prometheus) GetRegistry() prometheus.Registerer {
	return p.registry
}

func (p *Prometheus) GetConstLabels() prometheus.Labels {
	return p.constLabels
}

// Middleware records count, duration and in-flight gauge per route.
func (p *Prometheus) Middleware(c *fiber.Ctx) error {
	if c.Path() == p.skipPath {
		return c.Next()
	}

	start := time.Now()
	p.requestsInFlight.Inc()
	defer p.requestsInFlight.Dec()

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	route := c.Route().Path
	method := c.Method()
	statusCode := strconv.Itoa(status)

	p.requestsTotal.WithLabelValues(statusCode, method, route).Inc()
	p.requestDuration.WithLabelValues(statusCode, method, route).Observe(time.Since(start).Seconds())

	return err
}
