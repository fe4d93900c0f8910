// Package metrics holds the prometheus collectors for the retrieval and
// delivery pipeline. Collectors register on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemOutcomes counts terminal item outcomes by kind.
	ItemOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbot_item_outcomes_total",
		Help: "Terminal item outcomes by kind (delivered, skipped, failed)",
	}, []string{"outcome"})

	// ItemErrors counts classified item errors.
	ItemErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbot_item_errors_total",
		Help: "Item errors by taxonomy class",
	}, []string{"error_type"})

	// ExtractorDuration tracks the duration of probe and fetch calls.
	ExtractorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytbot_extractor_duration_seconds",
		Help:    "Duration of extractor probe and fetch calls",
		Buckets: prometheus.ExponentialBuckets(0.25, 2.0, 14), // 250ms to ~68m
	}, []string{"op"})

	// LadderRungs counts transcode attempts per rung and result.
	LadderRungs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbot_ladder_rungs_total",
		Help: "Transcode ladder attempts by target height and result",
	}, []string{"height", "result"})

	// TranscodeDuration tracks the duration of a single transcode invocation.
	TranscodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytbot_transcode_duration_seconds",
		Help:    "Duration of transcoder invocations",
		Buckets: prometheus.ExponentialBuckets(1, 2.0, 14), // 1s to ~2.3h
	}, []string{"height"})

	// DeliveryFallbacks counts media sends that fell back to a document send.
	DeliveryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytbot_delivery_fallbacks_total",
		Help: "Media sends rejected by the sink and retried as documents",
	})

	// WorkerJobsInFlight reports blocking jobs currently running in the worker pool.
	WorkerJobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytbot_worker_jobs_in_flight",
		Help: "Blocking extraction and transcode jobs currently running",
	})

	// CollectionItems counts collection entries by handling result.
	CollectionItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytbot_collection_items_total",
		Help: "Collection entries by handling result (attempted, unresolved)",
	}, []string{"result"})
)
