// Package hdmap 高精地图派生数据缓存
// 功能：将原始车道/连接线/道路数据转换为并发安全的查询表（几何、长度、拓扑、死路、过滤、禁止变道）
package hdmap

import (
	"fmt"
	"sort"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/geom"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/cmap"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

var _ entity.IMapCache = (*Cache)(nil)

// roadEnds 道路首尾点
type roadEnds struct {
	start, end geometry.Point
	ok         bool
}

// Cache 地图缓存
// 功能：地图派生数据的唯一来源，所有查询均为get-or-compute语义
// 说明：
// 1. 每个表的值在首次计算后发布，之后不再修改（黑名单变化会删除受影响的项并重新计算）
// 2. 连接线倒排索引在Load中一次性建立，此后只读
// 3. 一个Cache对应一次场景加载，Release后清空全部表
type Cache struct {
	sdk entity.IMapSDK
	cfg config.HDMap

	// 原始对象句柄，nil表示无法解析
	lanes *cmap.Map[entity.LaneUID, entity.ILane]
	links *cmap.Map[entity.LinkUID, entity.ILaneLink]
	roads *cmap.Map[int32, entity.IRoad]

	// Load后有序的全部ID
	laneIDs []entity.LaneUID
	linkIDs []entity.LinkUID
	roadIDs []int32

	// 几何
	geometry *cmap.Map[entity.LocationRef, *geom.Record]
	length   *cmap.Map[entity.LocationRef, float64]

	// Load时建立的倒排索引
	laneOutLinks  map[entity.LaneUID][]entity.LinkUID
	laneInLinks   map[entity.LaneUID][]entity.LinkUID
	linkFromLanes map[entity.LinkUID][]entity.LaneUID
	linkToLanes   map[entity.LinkUID][]entity.LaneUID
	roadOutLinks  map[int32][]entity.LinkUID
	roadInLinks   map[int32][]entity.LinkUID

	// 拓扑
	nextLanes *cmap.Map[entity.LaneUID, []entity.LaneUID]
	prevLanes *cmap.Map[entity.LaneUID, []entity.LaneUID]
	nextLinks *cmap.Map[entity.LaneUID, []entity.LinkUID]
	prevLinks *cmap.Map[entity.LaneUID, []entity.LinkUID]
	nextRoads *cmap.Map[int32, []int32]
	prevRoads *cmap.Map[int32, []int32]
	roadLinks *cmap.Map[[2]int32, []entity.LinkUID]

	// 道路
	roadStartEnd  *cmap.Map[int32, roadEnds]
	junctionPoint *cmap.Map[int32, roadEnds]

	// 规则
	deadEnds      *cmap.Map[entity.LaneUID, geometry.Point]
	blacklist     *cmap.Set[entity.LinkUID]
	refuse        [2]*cmap.Set[entity.LaneUID]
	specialRefuse *cmap.Map[entity.LaneUID, []specialRefuse]
	expandVision  map[[2]entity.LaneUID][]entity.ExpandLink
	filter        *Filter
}

// New 创建地图缓存
// 参数：sdk-原始地图，cfg-地图参数（零值字段使用默认值）
// 返回：未加载的缓存，调用Load完成批量构建
func New(sdk entity.IMapSDK, cfg config.HDMap) *Cache {
	c := &Cache{
		sdk: sdk,
		cfg: cfg.WithDefaults(),
	}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.lanes = cmap.New[entity.LaneUID, entity.ILane]()
	c.links = cmap.New[entity.LinkUID, entity.ILaneLink]()
	c.roads = cmap.New[int32, entity.IRoad]()
	c.laneIDs, c.linkIDs, c.roadIDs = nil, nil, nil
	c.geometry = cmap.New[entity.LocationRef, *geom.Record]()
	c.length = cmap.New[entity.LocationRef, float64]()
	c.laneOutLinks = make(map[entity.LaneUID][]entity.LinkUID)
	c.laneInLinks = make(map[entity.LaneUID][]entity.LinkUID)
	c.linkFromLanes = make(map[entity.LinkUID][]entity.LaneUID)
	c.linkToLanes = make(map[entity.LinkUID][]entity.LaneUID)
	c.roadOutLinks = make(map[int32][]entity.LinkUID)
	c.roadInLinks = make(map[int32][]entity.LinkUID)
	c.nextLanes = cmap.New[entity.LaneUID, []entity.LaneUID]()
	c.prevLanes = cmap.New[entity.LaneUID, []entity.LaneUID]()
	c.nextLinks = cmap.New[entity.LaneUID, []entity.LinkUID]()
	c.prevLinks = cmap.New[entity.LaneUID, []entity.LinkUID]()
	c.nextRoads = cmap.New[int32, []int32]()
	c.prevRoads = cmap.New[int32, []int32]()
	c.roadLinks = cmap.New[[2]int32, []entity.LinkUID]()
	c.roadStartEnd = cmap.New[int32, roadEnds]()
	c.junctionPoint = cmap.New[int32, roadEnds]()
	c.deadEnds = cmap.New[entity.LaneUID, geometry.Point]()
	c.blacklist = cmap.NewSet[entity.LinkUID]()
	c.refuse = [2]*cmap.Set[entity.LaneUID]{cmap.NewSet[entity.LaneUID](), cmap.NewSet[entity.LaneUID]()}
	c.specialRefuse = cmap.New[entity.LaneUID, []specialRefuse]()
	c.expandVision = make(map[[2]entity.LaneUID][]entity.ExpandLink)
	c.filter = &Filter{}
}

// Load 批量构建全部缓存表
// 功能：从原始地图构建句柄、几何、倒排索引、拓扑、死路、过滤与禁止变道表
// 返回：原始地图不可用时返回ErrLoadConnection
// 算法说明：
// 1. 并行解析全部车道/连接线/道路句柄
// 2. 并行构建几何记录（汇合）
// 3. 读取过滤配置，建立黑名单
// 4. 单线程建立连接线倒排索引（汇合，此后拓扑查询才可信）
// 5. 并行计算车道前驱后继、连接线与道路拓扑
// 6. 识别死路并回溯传播终点
// 7. 建立禁止变道与扩展视野表
// 说明：单个实体的失败只记录日志并跳过
func (c *Cache) Load() error {
	if c.sdk == nil {
		return fmt.Errorf("hdmap: no map source: %w", entity.ErrLoadConnection)
	}
	start := time.Now()

	t := time.Now()
	lanes, links, roads := c.sdk.Lanes(), c.sdk.Links(), c.sdk.Roads()
	parallel.GoFor(lanes, func(l entity.ILane) { c.lanes.Set(l.UID(), l) })
	parallel.GoFor(links, func(l entity.ILaneLink) { c.links.Set(l.UID(), l) })
	parallel.GoFor(roads, func(r entity.IRoad) { c.roads.Set(r.ID(), r) })
	c.laneIDs = lo.Map(lanes, func(l entity.ILane, _ int) entity.LaneUID { return l.UID() })
	c.linkIDs = lo.Map(links, func(l entity.ILaneLink, _ int) entity.LinkUID { return l.UID() })
	c.roadIDs = lo.Map(roads, func(r entity.IRoad, _ int) int32 { return r.ID() })
	sort.Slice(c.laneIDs, func(i, j int) bool { return c.laneIDs[i].Less(c.laneIDs[j]) })
	sort.Slice(c.linkIDs, func(i, j int) bool { return c.linkIDs[i].Less(c.linkIDs[j]) })
	sort.Slice(c.roadIDs, func(i, j int) bool { return c.roadIDs[i] < c.roadIDs[j] })
	observePhase("handles", t)

	t = time.Now()
	parallel.GoFor(c.laneIDs, func(uid entity.LaneUID) { c.LengthOf(entity.OnLane(uid)) })
	parallel.GoFor(c.linkIDs, func(uid entity.LinkUID) { c.LengthOf(entity.OnLink(uid)) })
	observePhase("geometry", t)

	t = time.Now()
	c.filter = LoadFilter(c.cfg.FilterFile, c.sdk.Name())
	c.applyFilterBlacklist()
	observePhase("filter", t)

	t = time.Now()
	c.buildLinkIndex()
	observePhase("link_index", t)

	t = time.Now()
	parallel.GoFor(c.laneIDs, func(uid entity.LaneUID) {
		c.NextLinksFrom(uid)
		c.PrevLinksTo(uid)
	})
	parallel.GoFor(c.laneIDs, func(uid entity.LaneUID) {
		c.NextLanesOf(uid)
		c.PrevLanesOf(uid)
	})
	parallel.GoFor(c.roadIDs, func(id int32) {
		c.NextRoadsOf(id)
		c.PrevRoadsOf(id)
		c.RoadStartEnd(id)
	})
	observePhase("topology", t)

	t = time.Now()
	c.makeDeadEnds()
	observePhase("dead_end", t)

	t = time.Now()
	c.makeRefuseLaneChange()
	c.makeExpandVision()
	observePhase("rules", t)

	log.Infof("hdmap %s loaded in %v: %d lanes, %d links (%d blacklisted), %d roads, %d dead-end lanes",
		c.sdk.Name(), time.Since(start), len(c.laneIDs), len(c.linkIDs), c.blacklist.Len(), len(c.roadIDs), c.deadEnds.Len())
	return nil
}

// Release 清空全部缓存表
func (c *Cache) Release() {
	c.reset()
	blacklistSize.Set(0)
	log.Info("hdmap cache released")
}

// MapName 地图名
func (c *Cache) MapName() string {
	return c.sdk.Name()
}

// Filter 当前地图匹配到的过滤配置
func (c *Cache) Filter() *Filter {
	return c.filter
}

// Lanes 全部可解析的车道
func (c *Cache) Lanes() []entity.LaneUID {
	return c.laneIDs
}

// Links 全部未被过滤的连接线
func (c *Cache) Links() []entity.LinkUID {
	return lo.Filter(c.linkIDs, func(uid entity.LinkUID, _ int) bool { return !c.IsBlacklisted(uid) })
}

// Roads 全部道路ID
func (c *Cache) Roads() []int32 {
	return c.roadIDs
}

// Lane 获取车道句柄
// 说明：无法解析时记录日志并缓存空结果
func (c *Cache) Lane(uid entity.LaneUID) (entity.ILane, bool) {
	l, _ := c.lanes.GetOrInsertWith(uid, func() entity.ILane {
		l, err := c.sdk.Lane(uid)
		if err != nil {
			unavailableTotal.WithLabelValues("lane").Inc()
			log.Warnf("lane handle: %v", err)
			return nil
		}
		return l
	})
	return l, l != nil
}

// Link 获取车道连接线句柄
func (c *Cache) Link(uid entity.LinkUID) (entity.ILaneLink, bool) {
	l, _ := c.links.GetOrInsertWith(uid, func() entity.ILaneLink {
		l, err := c.sdk.Link(uid)
		if err != nil {
			unavailableTotal.WithLabelValues("link").Inc()
			log.Warnf("link handle: %v", err)
			return nil
		}
		return l
	})
	return l, l != nil
}

// Road 获取道路句柄
func (c *Cache) Road(id int32) (entity.IRoad, bool) {
	r, _ := c.roads.GetOrInsertWith(id, func() entity.IRoad {
		r, err := c.sdk.Road(id)
		if err != nil {
			unavailableTotal.WithLabelValues("road").Inc()
			log.Warnf("road handle: %v", err)
			return nil
		}
		return r
	})
	return r, r != nil
}

// SectionCount 道路的路段数量，道路不存在时为0
func (c *Cache) SectionCount(roadID int32) int32 {
	if r, ok := c.Road(roadID); ok {
		return r.SectionCount()
	}
	return 0
}

// LaneCountOnSection 路段内车道数量（含无法解析的车道）
func (c *Cache) LaneCountOnSection(section entity.SectionUID) int {
	r, ok := c.Road(section.RoadID)
	if !ok {
		return 0
	}
	return len(r.LanesUnderSection(section.SectionID))
}

// LanesUnderSection 路段内可解析的车道，按从左到右排序
func (c *Cache) LanesUnderSection(section entity.SectionUID) []entity.LaneUID {
	r, ok := c.Road(section.RoadID)
	if !ok {
		return nil
	}
	return lo.Filter(r.LanesUnderSection(section.SectionID), func(uid entity.LaneUID, _ int) bool {
		_, ok := c.Lane(uid)
		return ok
	})
}

// NeighborLane 同一路段内左侧/右侧的车道
// 说明：车道ID从左到右为-1, -2, ...，左侧车道ID+1，右侧车道ID-1
func (c *Cache) NeighborLane(uid entity.LaneUID, side int) (entity.LaneUID, bool) {
	var target entity.LaneUID
	switch side {
	case entity.LEFT:
		if uid.LaneID >= -1 {
			return entity.LaneUID{}, false
		}
		target = entity.LaneUID{RoadID: uid.RoadID, SectionID: uid.SectionID, LaneID: uid.LaneID + 1}
	case entity.RIGHT:
		target = entity.LaneUID{RoadID: uid.RoadID, SectionID: uid.SectionID, LaneID: uid.LaneID - 1}
		if -uid.LaneID >= int32(c.LaneCountOnSection(uid.Section())) {
			return entity.LaneUID{}, false
		}
	default:
		log.Panicf("bad side %d", side)
	}
	_, ok := c.Lane(target)
	return target, ok
}

// sortedLanes 去重并排序
func sortedLanes(uids []entity.LaneUID) []entity.LaneUID {
	uids = lo.Uniq(uids)
	sort.Slice(uids, func(i, j int) bool { return uids[i].Less(uids[j]) })
	return uids
}

func sortedRoads(ids []int32) []int32 {
	ids = lo.Uniq(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
