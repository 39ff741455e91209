// Package metrics defines the Prometheus collectors for the aggregator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed fetch outcomes by status (success, empty, failed).
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsgrid_feed_fetches_total",
			Help: "Total number of feed fetch outcomes",
		},
		[]string{"status"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsgrid_cache_hits_total",
			Help: "Feed fetches served from the transient cache",
		},
	)

	AggregateArticles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newsgrid_aggregate_articles",
			Help: "Number of articles currently in the aggregate set",
		},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsgrid_aggregation_duration_seconds",
			Help:    "Duration of full aggregation passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsgrid_persist_errors_total",
			Help: "Failed persistent store writes",
		},
	)
)
