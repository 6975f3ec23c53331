package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
)

// Manager依赖倒置

// mapsdk/map.go的依赖倒置：原始地图数据访问
type IMapSDK interface {
	Name() string // 地图名（含扩展名），用于匹配过滤配置

	// 输入车道标识，查找车道，如果不存在则返回error
	Lane(uid LaneUID) (ILane, error)
	// 输入连接线标识，查找连接线，如果不存在则返回error
	Link(uid LinkUID) (ILaneLink, error)
	// 输入Road ID，查找Road，如果不存在则返回error
	Road(id int32) (IRoad, error)

	Lanes() []ILane     // 全部车道
	Links() []ILaneLink // 全部车道连接线
	Roads() []IRoad     // 全部道路

	// 查找距离pos最近的车道，返回车道与投影s坐标
	NearestLane(pos geometry.Point) (ILane, float64, error)
}

// hdmap/cache.go的依赖倒置：地图派生数据缓存
type IMapCache interface {
	MapName() string

	Lanes() []LaneUID // 全部可解析的车道（有序）
	Links() []LinkUID // 全部未被过滤的车道连接线（有序）
	Roads() []int32   // 全部道路ID（有序）

	Lane(uid LaneUID) (ILane, bool)
	SectionCount(roadID int32) int32
	LanesUnderSection(section SectionUID) []LaneUID
	NeighborLane(uid LaneUID, side int) (LaneUID, bool)

	// 几何

	LengthOf(ref LocationRef) float64
	PositionAt(ref LocationRef, s float64) geometry.Point
	DirectionAt(ref LocationRef, s float64) float64
	StartOf(ref LocationRef) geometry.Point
	EndOf(ref LocationRef) geometry.Point

	// 拓扑

	NextLanesOf(uid LaneUID) []LaneUID
	PrevLanesOf(uid LaneUID) []LaneUID
	NextLinksFrom(uid LaneUID) []LinkUID
	PrevLinksTo(uid LaneUID) []LinkUID
	FromLaneSetOf(link LinkUID) []LaneUID
	ToLaneSetOf(link LinkUID) []LaneUID
	NextRoadsOf(roadID int32) []int32
	PrevRoadsOf(roadID int32) []int32

	// 规则

	IsDeadEnd(uid LaneUID) (geometry.Point, bool)
	IsBlacklisted(link LinkUID) bool
	RefuseLaneChange(uid LaneUID, side int) bool
	IsDstRefuseLaneChange(uid LaneUID, side int) bool
	IsSpecialRefuseLaneChange(uid LaneUID, side int, s float64) bool
	RoadStartEnd(roadID int32) (start, end geometry.Point, ok bool)
	RoadToNextJunctionPoint(roadID int32) (geometry.Point, bool)
}

// hdmap/roadnet/network.go的依赖倒置：路网顶点
type IRoadNetwork interface {
	Vertices() []RoutingVertex
	// 查询端点所属的路网顶点ID
	VertexOf(jp JointPointID) (int32, bool)
}

// hdmap/hashed/node.go的依赖倒置：路段切片节点
type ISegmentNode interface {
	Info() HashedLaneInfo

	Register(kind AgentKind, e IElement, s float64)
	Unregister(kind AgentKind, id int32)
	Snapshot(kind AgentKind) []Occupant
}

// hdmap/hashed/index.go的依赖倒置：路段切片索引
type IHashedIndex interface {
	// 查询位置所在的切片节点
	Locate(ref LocationRef, s float64) (ISegmentNode, bool)

	// 前车搜索
	SearchNearestFront(selfID int32, selfLength float64, origin ISegmentNode, sInNode float64, distance float64) SurroundResult
	// 后车搜索
	SearchNearestRear(selfID int32, selfLength float64, origin ISegmentNode, sInNode float64, distance float64) SurroundResult
}

// entity/vehicle/manager.go的依赖倒置
type IVehicleManager interface {
	Init() // 初始化

	Prepare()          // 准备阶段
	Update(dt float64) // 更新阶段
	Release()          // 从索引中注销全部车辆
}
