/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachebatcher/internal/libinfo"
)

// MetricsCollector represents a collector of metrics for observing admission control of the batcher.
type MetricsCollector interface {
	// IncDroppedGets increments the number of lookups refused because the queue was full.
	IncDroppedGets()

	// IncQueuedGets increments the number of lookups that had to wait in the queue.
	IncQueuedGets()

	// SetLastBatchSize sets the number of lookups sent to the backend by the most recent dispatch.
	SetLastBatchSize(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it's not empty, PrometheusMetrics.MustCurryWith must be called with the same labels before use.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the batcher.
type PrometheusMetrics struct {
	DroppedGets   *prometheus.CounterVec
	QueuedGets    *prometheus.CounterVec
	LastBatchSize *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	droppedGets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_batcher_dropped_gets",
			Help:        "Number of lookups dropped because the queue of pending lookups was full.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	queuedGets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_batcher_queued_gets",
			Help:        "Number of lookups that waited in the queue for a free dispatch slot.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	lastBatchSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_batcher_last_batch_size",
			Help:        "Number of lookups sent to the backend by the most recent dispatch.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		DroppedGets:   droppedGets,
		QueuedGets:    queuedGets,
		LastBatchSize: lastBatchSize,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		DroppedGets:   pm.DroppedGets.MustCurryWith(labels),
		QueuedGets:    pm.QueuedGets.MustCurryWith(labels),
		LastBatchSize: pm.LastBatchSize.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.DroppedGets,
		pm.QueuedGets,
		pm.LastBatchSize,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.DroppedGets)
	prometheus.Unregister(pm.QueuedGets)
	prometheus.Unregister(pm.LastBatchSize)
}

// IncDroppedGets increments the number of dropped lookups.
func (pm *PrometheusMetrics) IncDroppedGets() {
	pm.DroppedGets.With(nil).Inc()
}

// IncQueuedGets increments the number of queued lookups.
func (pm *PrometheusMetrics) IncQueuedGets() {
	pm.QueuedGets.With(nil).Inc()
}

// SetLastBatchSize sets the size of the most recent dispatch.
func (pm *PrometheusMetrics) SetLastBatchSize(n int) {
	pm.LastBatchSize.With(nil).Set(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) IncDroppedGets()      {}
func (disabledMetrics) IncQueuedGets()       {}
func (disabledMetrics) SetLastBatchSize(int) {}
