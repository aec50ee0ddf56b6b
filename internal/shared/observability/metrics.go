package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nscope_extraction_seconds",
		Help:    "Time spent extracting resolution contexts from a source unit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	ContextsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_contexts_extracted_total",
		Help: "Total number of resolution contexts extracted.",
	})

	DeclarationsIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nscope_declarations_indexed",
		Help: "Number of declarations recorded by the last index run.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nscope_analysis_seconds",
		Help:    "Time spent on high-level operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ImportsPlannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_imports_planned_total",
		Help: "Total number of use statements produced by the import planner.",
	})

	StreamReplacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_stream_replacements_total",
		Help: "Total number of byte range replacements applied to streams.",
	})

	StreamBytesShiftedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_stream_bytes_shifted_total",
		Help: "Total number of tail bytes moved to open or close a gap in a stream.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nscope_watcher_throttled_total",
		Help: "Total number of reindex requests delayed by the watch rate limit.",
	})
)
