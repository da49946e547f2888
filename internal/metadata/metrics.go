package metadata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeInvalidURL = "invalid_url"
	outcomeCacheHit   = "cache_hit"
	outcomeFetchError = "fetch_error"
	outcomeNotHTML    = "not_html"
	outcomeResolved   = "resolved"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powermark",
		Subsystem: "metadata",
		Name:      "resolutions_total",
		Help:      "Metadata resolutions by outcome.",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "powermark",
		Subsystem: "metadata",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and parsing remote pages.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})
)

func observeOutcome(outcome string) {
	resolutions.WithLabelValues(outcome).Inc()
}
