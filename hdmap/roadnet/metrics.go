package roadnet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jointPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hdmap",
		Subsystem: "roadnet",
		Name:      "joint_points",
		Help:      "Number of lane/link endpoints fed into the merger",
	})
	vertices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hdmap",
		Subsystem: "roadnet",
		Name:      "vertices",
		Help:      "Number of routing vertices after merging",
	})
	inconsistentVertices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hdmap",
		Subsystem: "roadnet",
		Name:      "inconsistent_vertices",
		Help:      "Number of vertices whose members are farther apart than the tolerance",
	})
)
