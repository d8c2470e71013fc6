package leaknews

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leaknews_feed_sessions",
		Help: "Live feed sessions",
	})

	feedEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_feed_evictions_total",
		Help: "Feed sessions removed, by reason (idle, capacity)",
	}, []string{"reason"})

	moreRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaknews_more_rate_limited_total",
		Help: "Load-more requests rejected by the per-IP limit",
	})

	thumbnailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_thumbnails_total",
		Help: "Thumbnail requests by result",
	}, []string{"result"})
)
