package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

const maxHostnameLabel = 50

// Metrics counts upscale outcomes. Source keys are hashed so label
// cardinality stays bounded.
type Metrics struct {
	SuccessfullyServed *prometheus.CounterVec
	ServedCached       *prometheus.CounterVec
	Failures           *prometheus.CounterVec
}

func InitializeMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	metrics := &Metrics{
		SuccessfullyServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "upscale_served_total",
			Help:        "Upscaled images served, by source kind and origin host",
			ConstLabels: constLabels,
		}, []string{"source", "hostname", "source_hash"}),
		ServedCached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "upscale_cache_hits_total",
			Help:        "Upscaled images answered from a cache tier",
			ConstLabels: constLabels,
		}, []string{"source", "place"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "upscale_failures_total",
			Help:        "Failed upscale requests by the stage that failed",
			ConstLabels: constLabels,
		}, []string{"stage"}),
	}

	registry.MustRegister(metrics.SuccessfullyServed, metrics.ServedCached, metrics.Failures)

	return metrics
}

// Served records a response for sourceKey, fresh or cached.
func (m *Metrics) Served(source, hostname, sourceKey string) {
	m.SuccessfullyServed.WithLabelValues(source, CleanHostname(hostname), HashURL(sourceKey)).Inc()
}

// Cached records a hit in the given cache tier.
func (m *Metrics) Cached(source, place string) {
	m.ServedCached.WithLabelValues(source, place).Inc()
}

// Failed records a failure at stage.
func (m *Metrics) Failed(stage string) {
	m.Failures.WithLabelValues(stage).Inc()
}

// HashURL returns a 16 hex digit digest of the first 100 bytes of key.
func HashURL(key string) string {
	if len(key) > 100 {
		key = key[:100]
	}

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:8])
}

// CleanHostname strips any port and bounds the label length.
func CleanHostname(hostname string) string {
	if hostname == "" {
		return "unknown"
	}

	if host, _, err := net.SplitHostPort(hostname); err == nil {
		hostname = host
	}

	if len(hostname) > maxHostnameLabel {
		hostname = hostname[:maxHostnameLabel]
	}

	return hostname
}
