package hdmap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdmap",
			Subsystem: "cache",
			Name:      "compute_total",
			Help:      "Number of derived values computed on cache miss",
		},
		[]string{"table"},
	)

	unavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdmap",
			Subsystem: "cache",
			Name:      "unavailable_total",
			Help:      "Number of ids that did not resolve against the map",
		},
		[]string{"kind"},
	)

	loadPhaseSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdmap",
			Subsystem: "cache",
			Name:      "load_phase_seconds",
			Help:      "Duration of each bulk load phase",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"phase"},
	)

	blacklistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hdmap",
			Subsystem: "cache",
			Name:      "blacklist_links",
			Help:      "Number of blacklisted lane-links",
		},
	)
)

// observePhase 记录一个加载阶段的耗时
func observePhase(phase string, start time.Time) {
	d := time.Since(start)
	loadPhaseSeconds.WithLabelValues(phase).Observe(d.Seconds())
	log.Debugf("load phase %s: %v", phase, d)
}
