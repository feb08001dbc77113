package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grantdash_feed_reloads_total",
		Help: "Accepted grant list reloads by outcome",
	}, []string{"outcome"})

	discardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grantdash_feed_discarded_responses_total",
		Help: "Grant list responses dropped because a newer reload was issued",
	})

	reloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grantdash_feed_reload_duration_seconds",
		Help:    "Time from issuing a grant list reload to applying it",
		Buckets: prometheus.DefBuckets,
	})
)
