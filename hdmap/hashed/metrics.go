package hashed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdmap",
			Subsystem: "hashed",
			Name:      "search_total",
			Help:      "Number of neighbor searches by direction and result",
		},
		[]string{"direction", "result"},
	)

	searchLevels = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdmap",
			Subsystem: "hashed",
			Name:      "search_levels",
			Help:      "Number of frontier levels visited per neighbor search",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"direction"},
	)

	registered = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hdmap",
			Subsystem: "hashed",
			Name:      "registered_elements",
			Help:      "Number of elements registered on segment nodes",
		},
		[]string{"kind"},
	)

	nodeCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hdmap",
			Subsystem: "hashed",
			Name:      "nodes",
			Help:      "Number of segment nodes in the index",
		},
	)
)
