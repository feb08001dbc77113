package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grantdash_remote_requests_total",
		Help: "Requests sent to the grants service by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grantdash_remote_request_duration_seconds",
		Help:    "Latency of requests to the grants service",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
