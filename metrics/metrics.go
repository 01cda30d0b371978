// Package metrics holds the Prometheus collectors for the editing hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: "time", "pitch", "rect", "viewport", "overlap"
	IndexQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rollindex_query_duration_seconds",
		Help:    "Note index query duration by query shape",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"shape"})

	IndexQueryResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rollindex_query_results",
		Help:    "Notes returned per index query",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	}, []string{"shape"})

	IndexRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollindex_rebuild_duration_seconds",
		Help:    "Full note index rebuild duration",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	IndexedNotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rollindex_indexed_notes",
		Help: "Notes currently held by the most recently modified index",
	})

	QuantizeBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollindex_quantize_batch_size",
		Help:    "Positions quantized per batch call",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
	})

	QuantizeBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollindex_quantize_batch_duration_seconds",
		Help:    "Quantize batch duration",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
	})

	// Labels: "success", "error"
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollindex_http_requests_total",
		Help: "Edit server requests by route and result",
	}, []string{"route", "result"})
)
