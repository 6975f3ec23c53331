package lane

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// Data 车道原始数据
type Data struct {
	UID   entity.LaneUID   // 车道标识
	Type  mapv2.LaneType   // 车道类型
	Width float64          // 车道宽度
	MaxV  float64          // 车道限速
	Line  []geometry.Point // 中心线
}

// polyline 中心线折线及其累计长度、分段方向
type polyline struct {
	line           []geometry.Point             // 中心线折线
	lineLengths    []float64                    // 中心线折线点对应的的长度列表
	lineDirections []geometry.PolylineDirection // 中心线折线段每一段的方向（atan2）
	length         float64                      // 以中心线的长度为车道长度
}

func newPolyline(line []geometry.Point) polyline {
	p := polyline{line: line}
	p.lineLengths = geometry.GetPolylineLengths2D(p.line)
	p.length = p.lineLengths[len(p.lineLengths)-1]
	p.lineDirections = geometry.GetPolylineDirections(p.line)
	return p
}

// positionByS 将s坐标转换为xy坐标，超出范围时截断
func (p *polyline) positionByS(s float64) (pos geometry.Point) {
	if s < p.lineLengths[0] || s > p.length {
		log.Debugf("get position with s %v out of range{%v,%v}", s, p.lineLengths[0], p.length)
		s = lo.Clamp(s, p.lineLengths[0], p.length)
	}
	if i := sort.SearchFloat64s(p.lineLengths, s); i == 0 {
		pos = p.line[0]
	} else {
		sHigh, sLow := p.lineLengths[i], p.lineLengths[i-1]
		k := (s - sLow) / (sHigh - sLow)
		if k < 0 || k > 1 {
			log.Panicf("lane: positionByS(), bad k %v. sHigh=%f, sLow=%f, s=%f", k, sHigh, sLow, s)
		}
		pos = geometry.Blend(p.line[i-1], p.line[i], k)
	}
	return
}

// directionByS 根据s坐标计算切向角度
func (p *polyline) directionByS(s float64) (direction geometry.PolylineDirection) {
	s = lo.Clamp(s, p.lineLengths[0], p.length)
	if i := sort.SearchFloat64s(p.lineLengths, s); i == 0 {
		direction = p.lineDirections[0]
	} else {
		direction = p.lineDirections[i-1]
	}
	return
}

// Lane 车道实体
// 功能：表示地图中路段内的一条车道，提供中心线几何查询
type Lane struct {
	polyline

	uid   entity.LaneUID
	typ   mapv2.LaneType // 车道类型
	width float64        // 车道宽度
	maxV  float64        // 车道限速
}

// newLane 创建并初始化一个新的Lane实例
// 功能：根据原始数据创建Lane对象，计算几何属性
// 参数：base-车道原始数据
// 返回：Lane实例，中心线少于2个点时返回false
func newLane(base Data) (*Lane, bool) {
	if len(base.Line) < 2 {
		log.Warnf("skip lane %v: center line has %d points", base.UID, len(base.Line))
		return nil, false
	}
	switch base.Type {
	case mapv2.LaneType_LANE_TYPE_DRIVING, mapv2.LaneType_LANE_TYPE_WALKING, mapv2.LaneType_LANE_TYPE_RAIL_TRANSIT:
	default:
		log.Warnf("lane %v has unknown type %v", base.UID, base.Type)
	}
	return &Lane{
		polyline: newPolyline(base.Line),
		uid:      base.UID,
		typ:      base.Type,
		width:    base.Width,
		maxV:     base.MaxV,
	}, true
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane %v", l.uid)
}

// UID 获取车道标识
func (l *Lane) UID() entity.LaneUID {
	return l.uid
}

// Type 获取车道类型
func (l *Lane) Type() mapv2.LaneType {
	return l.typ
}

// Width 获取车道宽度
func (l *Lane) Width() float64 {
	return l.width
}

// MaxV 获取车道限速
func (l *Lane) MaxV() float64 {
	return l.maxV
}

// Length 获取车道长度
func (l *Lane) Length() float64 {
	return l.length
}

// Line 获取车道中心线
func (l *Lane) Line() []geometry.Point {
	return l.line
}

// GetPositionByS 将当前车道s坐标转换为xy坐标
// 功能：根据s坐标在中心线上线性插值计算位置
// 参数：s-车道上的位置坐标
// 返回：对应的xy坐标点
// 说明：如果s超出范围会进行截断处理
func (l *Lane) GetPositionByS(s float64) geometry.Point {
	return l.positionByS(s)
}

// GetDirectionByS 根据本车道s坐标计算切向角度
func (l *Lane) GetDirectionByS(s float64) geometry.PolylineDirection {
	return l.directionByS(s)
}

// ProjectToLane 将xy坐标投影到车道上，返回s坐标
// 功能：计算点到车道中心线的最近投影点
// 参数：pos-要投影的xy坐标点
// 返回：投影点在车道上的s坐标
func (l *Lane) ProjectToLane(pos geometry.Point) float64 {
	s := geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, pos)
	return lo.Clamp(s, 0, l.length)
}
