package resources

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "grantdash_optimistic_mutations_total",
	Help: "Optimistic mutations by resource, operation and state reached",
}, []string{"resource", "op", "state"})
