package hdmap

import (
	"errors"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/geom"
)

// GeometryFor 获取车道/连接线的几何记录
// 功能：缓存未命中时从原始地图获取中心线并重采样，车道使用Catmull-Rom曲线，连接线使用三次样条
// 返回：几何记录；实体无法解析时返回nil与ErrEntityUnavailable
// 说明：退化几何记录为单点记录并记录日志，不返回错误
func (c *Cache) GeometryFor(ref entity.LocationRef) (*geom.Record, error) {
	r, _ := c.geometry.GetOrInsertWith(ref, func() *geom.Record {
		computeTotal.WithLabelValues("geometry").Inc()
		var (
			line []geometry.Point
			rec  *geom.Record
			err  error
		)
		if ref.IsOnLink() {
			l, ok := c.Link(ref.Link())
			if !ok {
				return nil
			}
			line = l.Line()
			rec, err = geom.NewLinkRecord(line, c.cfg.MapLocationInterval)
		} else {
			l, ok := c.Lane(ref.Lane())
			if !ok {
				return nil
			}
			line = l.Line()
			rec, err = geom.NewLaneRecord(line, c.cfg.MapLocationInterval)
		}
		if errors.Is(err, geom.ErrDegenerateGeometry) {
			log.Warnf("%v: %v (%d points), fall back to zero-length record", ref, err, len(line))
		}
		return rec
	})
	if r == nil {
		return nil, entity.ErrEntityUnavailable
	}
	return r, nil
}

// LengthOf 车道/连接线长度，无法解析时为0
func (c *Cache) LengthOf(ref entity.LocationRef) float64 {
	v, _ := c.length.GetOrInsertWith(ref, func() float64 {
		computeTotal.WithLabelValues("length").Inc()
		r, err := c.GeometryFor(ref)
		if err != nil {
			return 0
		}
		return r.Length()
	})
	return v
}

// PositionAt 弧长s处的位置，无法解析时为原点
func (c *Cache) PositionAt(ref entity.LocationRef, s float64) geometry.Point {
	r, err := c.GeometryFor(ref)
	if err != nil {
		return geometry.Point{}
	}
	return r.Position(s)
}

// DirectionAt 弧长s处的切向角度（弧度），无法解析时为0
func (c *Cache) DirectionAt(ref entity.LocationRef, s float64) float64 {
	r, err := c.GeometryFor(ref)
	if err != nil {
		return 0
	}
	return r.Direction(s)
}

// StartOf 起点
func (c *Cache) StartOf(ref entity.LocationRef) geometry.Point {
	r, err := c.GeometryFor(ref)
	if err != nil {
		return geometry.Point{}
	}
	return r.Start()
}

// EndOf 终点
func (c *Cache) EndOf(ref entity.LocationRef) geometry.Point {
	r, err := c.GeometryFor(ref)
	if err != nil {
		return geometry.Point{}
	}
	return r.End()
}

// Envelope 全部已缓存几何的轴对齐包围盒
// 返回：左下角、右上角，没有任何几何时ok为false
func (c *Cache) Envelope() (lower, upper geometry.Point, ok bool) {
	lower = geometry.Point{X: mathutil.INF, Y: mathutil.INF}
	upper = geometry.Point{X: -mathutil.INF, Y: -mathutil.INF}
	c.geometry.Range(func(_ entity.LocationRef, r *geom.Record) bool {
		if r == nil {
			return true
		}
		for _, p := range r.Points() {
			lower.X, lower.Y = math.Min(lower.X, p.X), math.Min(lower.Y, p.Y)
			upper.X, upper.Y = math.Max(upper.X, p.X), math.Max(upper.Y, p.Y)
			ok = true
		}
		return true
	})
	return
}

func distance2D(a, b geometry.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
