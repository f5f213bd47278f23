package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PassBootstrap = "bootstrap"
	PassPeriodic  = "periodic"

	StepScan       = "scan"
	StepRemove     = "remove"
	StepStatistics = "statistics"
	StepListing    = "listing"
)

var (
	CatalogVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_videos",
		Help: "Number of videos currently in the catalog",
	})
	LibraryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "library_total_bytes",
		Help: "Total size of video files seen during the last scan",
	})
	VideosRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_removed_videos",
	})

	ReconcileSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_step_seconds",
			Help:    "Duration of reconciliation steps",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"pass", "step"},
	)
	ReconcileErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_errors",
		Help: "Errors hit during reconciliation, by step",
	}, []string{"step"})

	ViewsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_views_served",
	})
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigation_redirects",
	}, []string{"kind"})
	UnknownRoutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_unknown_routes",
	})

	ShellAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shell_attempts",
		Help: "Admin shell submissions by outcome",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests",
			Help:    "Request latency distributions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 2, 5},
		},
		[]string{"status_code"},
	)
)
