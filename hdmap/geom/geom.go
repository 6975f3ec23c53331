// Package geom 车道与车道连接线的几何插值记录
package geom

import (
	"errors"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

// ErrDegenerateGeometry 几何过短或非法，无法构成两点线段
var ErrDegenerateGeometry = errors.New("degenerate geometry")

const (
	curveControlPointSize  = 4    // Catmull-Rom曲线所需的最少控制点数
	splineControlPointSize = 3    // 三次样条所需控制点数需大于该值
	samplesPerSegment      = 4    // 每两个控制点之间的采样数
	coincideEps            = 1e-6 // 判定两点重合的距离
)

// Kind 几何记录类型
type Kind uint8

const (
	KindPoint  Kind = iota // 单点，长度为0
	KindShort              // 首尾两点构成的线段
	KindCurve              // Catmull-Rom曲线（车道）
	KindSpline             // 三次Hermite样条（车道连接线）
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindShort:
		return "short"
	case KindCurve:
		return "curve"
	case KindSpline:
		return "spline"
	default:
		return "unknown"
	}
}

// Record 几何记录
// 功能：保存重采样后的折线，提供按弧长s查询位置与方向
// 说明：构建后不可变，可在多个协程间共享
type Record struct {
	kind    Kind
	points  []geometry.Point
	lengths []float64 // points对应的累计长度
	dirs    []float64 // 每一段的方向（atan2）
}

// Kind 几何记录类型
func (r *Record) Kind() Kind {
	return r.kind
}

// Length 弧长
func (r *Record) Length() float64 {
	return r.lengths[len(r.lengths)-1]
}

// Points 重采样后的折线
func (r *Record) Points() []geometry.Point {
	return r.points
}

// Start 起点
func (r *Record) Start() geometry.Point {
	return r.points[0]
}

// End 终点
func (r *Record) End() geometry.Point {
	return r.points[len(r.points)-1]
}

// Position 弧长s处的位置，s超出范围时截断
func (r *Record) Position(s float64) geometry.Point {
	if r.kind == KindPoint {
		return r.points[0]
	}
	s = lo.Clamp(s, 0, r.Length())
	i := sort.SearchFloat64s(r.lengths, s)
	if i == 0 {
		return r.points[0]
	}
	sHigh, sLow := r.lengths[i], r.lengths[i-1]
	k := (s - sLow) / (sHigh - sLow)
	return geometry.Blend(r.points[i-1], r.points[i], k)
}

// Direction 弧长s处的切向角度（弧度）
func (r *Record) Direction(s float64) float64 {
	if r.kind == KindPoint {
		return 0
	}
	s = lo.Clamp(s, 0, r.Length())
	i := sort.SearchFloat64s(r.lengths, s)
	if i == 0 {
		return r.dirs[0]
	}
	return r.dirs[i-1]
}

// NewLaneRecord 由车道原始中心线构建几何记录
// 功能：按interval重采样控制点，控制点足够时生成Catmull-Rom曲线，否则退化为首尾两点线段
// 参数：line-原始中心线，interval-控制点间隔
// 返回：几何记录；无法构成线段时返回单点记录与ErrDegenerateGeometry
func NewLaneRecord(line []geometry.Point, interval float64) (*Record, error) {
	return newRecord(line, interval, KindCurve)
}

// NewLinkRecord 由车道连接线原始中心线构建几何记录
// 功能：控制点数大于3时生成三次Hermite样条，否则退化为首尾两点线段
func NewLinkRecord(line []geometry.Point, interval float64) (*Record, error) {
	return newRecord(line, interval, KindSpline)
}

func newRecord(line []geometry.Point, interval float64, want Kind) (*Record, error) {
	pts := dedup(line)
	switch len(pts) {
	case 0:
		return newPolylineRecord(KindPoint, []geometry.Point{{}}), ErrDegenerateGeometry
	case 1:
		return newPolylineRecord(KindPoint, pts), ErrDegenerateGeometry
	}
	ctrl := resample(pts, interval)
	switch {
	case want == KindCurve && len(ctrl) >= curveControlPointSize:
		return newPolylineRecord(KindCurve, catmullRom(ctrl)), nil
	case want == KindSpline && len(ctrl) > splineControlPointSize:
		return newPolylineRecord(KindSpline, hermite(ctrl)), nil
	default:
		return newPolylineRecord(KindShort, []geometry.Point{pts[0], pts[len(pts)-1]}), nil
	}
}

func newPolylineRecord(kind Kind, pts []geometry.Point) *Record {
	if kind == KindPoint {
		return &Record{kind: kind, points: pts[:1], lengths: []float64{0}}
	}
	pts = dedup(pts)
	r := &Record{
		kind:    kind,
		points:  pts,
		lengths: geometry.GetPolylineLengths2D(pts),
		dirs:    make([]float64, len(pts)-1),
	}
	for i := range r.dirs {
		r.dirs[i] = math.Atan2(pts[i+1].Y-pts[i].Y, pts[i+1].X-pts[i].X)
	}
	return r
}

func dist2D(a, b geometry.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// dedup 去除相邻的重合点
func dedup(line []geometry.Point) []geometry.Point {
	res := make([]geometry.Point, 0, len(line))
	for _, p := range line {
		if len(res) > 0 && dist2D(res[len(res)-1], p) < coincideEps {
			continue
		}
		res = append(res, p)
	}
	return res
}

// resample 沿折线按固定间隔取点，首尾点总是保留
// 说明：距终点不足半个间隔的采样点被丢弃，保证相邻控制点间距之比有界
func resample(pts []geometry.Point, interval float64) []geometry.Point {
	lengths := geometry.GetPolylineLengths2D(pts)
	total := lengths[len(lengths)-1]
	if interval <= 0 || total <= interval {
		return []geometry.Point{pts[0], pts[len(pts)-1]}
	}
	res := []geometry.Point{pts[0]}
	j := 1
	for s := interval; s < total-interval/2; s += interval {
		for lengths[j] < s {
			j++
		}
		k := (s - lengths[j-1]) / (lengths[j] - lengths[j-1])
		res = append(res, geometry.Blend(pts[j-1], pts[j], k))
	}
	return append(res, pts[len(pts)-1])
}

// catmullRom 以均匀Catmull-Rom曲线加密控制点，曲线经过所有控制点
func catmullRom(ctrl []geometry.Point) []geometry.Point {
	n := len(ctrl)
	at := func(i int) geometry.Point {
		return ctrl[lo.Clamp(i, 0, n-1)]
	}
	res := make([]geometry.Point, 0, (n-1)*samplesPerSegment+1)
	for i := 0; i < n-1; i++ {
		p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)
		if i == 0 {
			p0 = extrapolate(p1, p2)
		}
		if i == n-2 {
			p3 = extrapolate(p2, p1)
		}
		for k := 0; k < samplesPerSegment; k++ {
			t := float64(k) / samplesPerSegment
			res = append(res, catmullRomAt(p0, p1, p2, p3, t))
		}
	}
	return append(res, ctrl[n-1])
}

// extrapolate 关于p的b的镜像点，用于端点处的虚拟控制点
func extrapolate(p, b geometry.Point) geometry.Point {
	return geometry.Point{X: 2*p.X - b.X, Y: 2*p.Y - b.Y, Z: 2*p.Z - b.Z}
}

func catmullRomAt(p0, p1, p2, p3 geometry.Point, t float64) geometry.Point {
	t2, t3 := t*t, t*t*t
	f := func(a, b, c, d float64) float64 {
		return 0.5 * (2*b + (-a+c)*t + (2*a-5*b+4*c-d)*t2 + (-a+3*b-3*c+d)*t3)
	}
	return geometry.Point{
		X: f(p0.X, p1.X, p2.X, p3.X),
		Y: f(p0.Y, p1.Y, p2.Y, p3.Y),
		Z: f(p0.Z, p1.Z, p2.Z, p3.Z),
	}
}

// hermite 以有限差分切线的三次Hermite样条加密控制点
func hermite(ctrl []geometry.Point) []geometry.Point {
	n := len(ctrl)
	tangents := make([]geometry.Point, n)
	for i := range ctrl {
		a, b := ctrl[max(i-1, 0)], ctrl[min(i+1, n-1)]
		scale := 1.0
		if i > 0 && i < n-1 {
			scale = 0.5
		}
		tangents[i] = geometry.Point{X: (b.X - a.X) * scale, Y: (b.Y - a.Y) * scale, Z: (b.Z - a.Z) * scale}
	}
	res := make([]geometry.Point, 0, (n-1)*samplesPerSegment+1)
	for i := 0; i < n-1; i++ {
		for k := 0; k < samplesPerSegment; k++ {
			t := float64(k) / samplesPerSegment
			res = append(res, hermiteAt(ctrl[i], ctrl[i+1], tangents[i], tangents[i+1], t))
		}
	}
	return append(res, ctrl[n-1])
}

func hermiteAt(p0, p1, m0, m1 geometry.Point, t float64) geometry.Point {
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return geometry.Point{
		X: h00*p0.X + h10*m0.X + h01*p1.X + h11*m1.X,
		Y: h00*p0.Y + h10*m0.Y + h01*p1.Y + h11*m1.Y,
		Z: h00*p0.Z + h10*m0.Z + h01*p1.Z + h11*m1.Z,
	}
}
