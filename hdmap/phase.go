package hdmap

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/geom"
)

// ControlPhase 连接线的转向类型
type ControlPhase int

const (
	PhaseUnknown ControlPhase = iota
	PhaseStraight             // T
	PhaseLeft                 // L
	PhaseUTurnLeft            // L0
	PhaseRight                // R
	PhaseUTurnRight           // R0
)

func (p ControlPhase) String() string {
	switch p {
	case PhaseStraight:
		return "T"
	case PhaseLeft:
		return "L"
	case PhaseUTurnLeft:
		return "L0"
	case PhaseRight:
		return "R"
	case PhaseUTurnRight:
		return "R0"
	default:
		return "unknown"
	}
}

// ControlPhaseOf 按连接线首尾方向角之差判断转向类型
// 算法说明：角度差规范化到(-π, π]，绝对值小于45°为直行，45°~135°为左/右转，大于135°为掉头
func (c *Cache) ControlPhaseOf(link entity.LinkUID) ControlPhase {
	r, err := c.GeometryFor(entity.OnLink(link))
	if err != nil || r.Kind() == geom.KindPoint {
		return PhaseUnknown
	}
	d := r.Direction(r.Length()) - r.Direction(0)
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	abs := math.Abs(d)
	switch {
	case abs < math.Pi/4:
		return PhaseStraight
	case d > 0 && abs <= 3*math.Pi/4:
		return PhaseLeft
	case d > 0:
		return PhaseUTurnLeft
	case abs <= 3*math.Pi/4:
		return PhaseRight
	default:
		return PhaseUTurnRight
	}
}
