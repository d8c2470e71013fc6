package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaknews_pagination_outcomes_total",
	Help: "LoadMore calls by resulting condition",
}, []string{"condition"})
