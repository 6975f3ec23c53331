package vehicle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeVehicles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hdmap",
			Subsystem: "probe",
			Name:      "vehicles",
			Help:      "Number of active probe vehicles",
		},
	)

	respawnTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hdmap",
			Subsystem: "probe",
			Name:      "respawn_total",
			Help:      "Number of probe vehicles respawned after reaching a dead end",
		},
	)

	laneChangeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdmap",
			Subsystem: "probe",
			Name:      "lane_change_total",
			Help:      "Number of lane change attempts by result",
		},
		[]string{"result"},
	)
)
