package entity

import (
	"fmt"
	"strconv"
	"strings"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// 方位常量
const (
	LEFT   = 0 // 左侧
	RIGHT  = 1 // 右侧
	BEFORE = 0 // 后方，等价于prev/behind
	AFTER  = 1 // 前方，等价于next/ahead
)

// LaneUID 车道唯一标识（道路ID, 路段ID, 车道ID）
// 说明：车道ID按照参考线从左到右依次为-1, -2, ...
type LaneUID struct {
	RoadID    int32
	SectionID int32
	LaneID    int32
}

func (u LaneUID) String() string {
	return fmt.Sprintf("%d.%d.%d", u.RoadID, u.SectionID, u.LaneID)
}

// Less 车道排序：道路、路段升序，路段内从左到右
func (u LaneUID) Less(o LaneUID) bool {
	if u.RoadID != o.RoadID {
		return u.RoadID < o.RoadID
	}
	if u.SectionID != o.SectionID {
		return u.SectionID < o.SectionID
	}
	// 车道ID为负数，从左到右递减
	return u.LaneID > o.LaneID
}

// Section 车道所在的路段
func (u LaneUID) Section() SectionUID {
	return SectionUID{RoadID: u.RoadID, SectionID: u.SectionID}
}

// ParseLaneUID 解析"road.section.lane"格式的车道标识
func ParseLaneUID(s string) (LaneUID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return LaneUID{}, fmt.Errorf("bad lane uid %q: want road.section.lane", s)
	}
	var v [3]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return LaneUID{}, fmt.Errorf("bad lane uid %q: %w", s, err)
		}
		v[i] = int32(n)
	}
	return LaneUID{RoadID: v[0], SectionID: v[1], LaneID: v[2]}, nil
}

// SectionUID 路段唯一标识
type SectionUID struct {
	RoadID    int32
	SectionID int32
}

func (u SectionUID) String() string {
	return fmt.Sprintf("%d.%d", u.RoadID, u.SectionID)
}

// LinkUID 车道连接线唯一标识
// 说明：原始连接线ID在不同数据源间不保证唯一，因此相等性由(ID, 起点车道, 终点车道)共同决定
type LinkUID struct {
	LinkID int32
	From   LaneUID
	To     LaneUID
}

func (u LinkUID) String() string {
	return fmt.Sprintf("link %d(%v->%v)", u.LinkID, u.From, u.To)
}

// Less 连接线排序：起点车道、终点车道、ID
func (u LinkUID) Less(o LinkUID) bool {
	if u.From != o.From {
		return u.From.Less(o.From)
	}
	if u.To != o.To {
		return u.To.Less(o.To)
	}
	return u.LinkID < o.LinkID
}

// LocationRef 位置引用，车道与车道连接线二选一
// 功能：作为缓存与索引的键使用，可比较
type LocationRef struct {
	onLink bool
	lane   LaneUID
	link   LinkUID
}

// OnLane 构造车道上的位置引用
func OnLane(u LaneUID) LocationRef {
	return LocationRef{lane: u}
}

// OnLink 构造车道连接线上的位置引用
func OnLink(u LinkUID) LocationRef {
	return LocationRef{onLink: true, link: u}
}

func (r LocationRef) IsOnLane() bool {
	return !r.onLink
}

func (r LocationRef) IsOnLink() bool {
	return r.onLink
}

// Lane 车道标识，仅在IsOnLane时有意义
func (r LocationRef) Lane() LaneUID {
	return r.lane
}

// Link 车道连接线标识，仅在IsOnLink时有意义
func (r LocationRef) Link() LinkUID {
	return r.link
}

func (r LocationRef) String() string {
	if r.onLink {
		return r.link.String()
	}
	return "lane " + r.lane.String()
}

// JointPointID 车道或车道连接线的端点
type JointPointID struct {
	Ref     LocationRef
	IsStart bool
}

func (j JointPointID) String() string {
	if j.IsStart {
		return j.Ref.String() + "@start"
	}
	return j.Ref.String() + "@end"
}

// AgentKind 注册到路段节点的对象类别
type AgentKind int

const (
	KindVehicle AgentKind = iota
	KindPedestrian
	KindObstacle
	KindCount
)

func (k AgentKind) String() string {
	switch k {
	case KindVehicle:
		return "vehicle"
	case KindPedestrian:
		return "pedestrian"
	case KindObstacle:
		return "obstacle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IElement 可注册到路段节点的交通参与者
type IElement interface {
	ID() int32       // 参与者ID
	Length() float64 // 参与者长度
}

// Occupant 路段节点登记表中的一项
type Occupant struct {
	Element IElement
	S       float64 // 登记时在节点内的偏移量
}

// HashedLaneInfo 车道/车道连接线的一个有限长度切片
// 说明：相等性由(Ref, Index)决定，Start/End为切片在所属车道上的区间
type HashedLaneInfo struct {
	Ref   LocationRef
	Index int32
	Start float64
	End   float64
}

// RealLength 切片长度
func (h HashedLaneInfo) RealLength() float64 {
	return h.End - h.Start
}

// SInNode 所属车道上的s坐标在切片内的偏移
func (h HashedLaneInfo) SInNode(s float64) float64 {
	return s - h.Start
}

// SInv 所属车道上的s坐标距切片末端的距离
func (h HashedLaneInfo) SInv(s float64) float64 {
	return h.End - s
}

func (h HashedLaneInfo) String() string {
	return fmt.Sprintf("%v#%d[%.2f,%.2f]", h.Ref, h.Index, h.Start, h.End)
}

// SurroundResult 邻车搜索结果
type SurroundResult struct {
	Distance float64  // 车头到车尾的间距
	Element  IElement // 最近的参与者，nil表示未找到
}

// Found 是否找到邻车
func (r SurroundResult) Found() bool {
	return r.Element != nil
}

// ExpandLink 扩展视野的车道连接线与距离
type ExpandLink struct {
	From     LaneUID
	To       LaneUID
	Distance float64
}

// RoutingVertex 路网顶点，由空间上重合的端点合并得到
type RoutingVertex struct {
	ID       int32
	Members  []JointPointID
	Position geometry.Point
}

// entity/lane/lane.go的依赖倒置
type ILane interface {
	String() string

	UID() LaneUID           // 获取车道标识
	Type() mapv2.LaneType   // 获取车道类型
	Width() float64         // 获取车道宽度
	MaxV() float64          // 获取车道限速
	Length() float64        // 获取中心线长度
	Line() []geometry.Point // 获取中心线

	GetPositionByS(s float64) geometry.Point              // 将s坐标转换为xy坐标
	GetDirectionByS(s float64) geometry.PolylineDirection // 根据s坐标计算切向角度
	ProjectToLane(pos geometry.Point) float64             // 将xy坐标投影到车道上，返回s坐标
}

// entity/lane/link.go的依赖倒置
type ILaneLink interface {
	String() string

	UID() LinkUID           // 获取连接线标识
	Length() float64        // 获取中心线长度
	Line() []geometry.Point // 获取中心线

	GetPositionByS(s float64) geometry.Point // 将s坐标转换为xy坐标
}

// entity/road/road.go的依赖倒置
type IRoad interface {
	String() string

	ID() int32                                 // 获取Road ID
	Name() string                              // 获取Road名称
	SectionCount() int32                       // 获取路段数量
	LanesUnderSection(section int32) []LaneUID // 获取路段内的车道，按从左到右排序
}
