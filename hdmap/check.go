package hdmap

import (
	"sort"

	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/geom"
)

// CheckReport 地图检查结果
type CheckReport struct {
	BadGeometry   []entity.LocationRef // 几何无法构建或退化为单点
	DanglingLinks []entity.LinkUID     // 起点或终点车道无法解析
	ParallelLinks [][]entity.LinkUID   // 起终车道相同的多条连接线
	IsolatedLanes []entity.LaneUID     // 既无前驱也无后继（含连接线）
}

// OK 是否没有任何问题
func (r CheckReport) OK() bool {
	return len(r.BadGeometry) == 0 && len(r.DanglingLinks) == 0 &&
		len(r.ParallelLinks) == 0 && len(r.IsolatedLanes) == 0
}

// Check 检查已加载的地图
// 说明：只记录日志并返回结果，不影响缓存的使用
func (c *Cache) Check() CheckReport {
	var r CheckReport
	bad := func(ref entity.LocationRef) bool {
		rec, err := c.GeometryFor(ref)
		return err != nil || rec.Kind() == geom.KindPoint
	}
	for _, uid := range c.laneIDs {
		if bad(entity.OnLane(uid)) {
			r.BadGeometry = append(r.BadGeometry, entity.OnLane(uid))
		}
		if len(c.NextLanesOf(uid)) == 0 && len(c.PrevLanesOf(uid)) == 0 &&
			len(c.NextLinksFrom(uid)) == 0 && len(c.PrevLinksTo(uid)) == 0 {
			r.IsolatedLanes = append(r.IsolatedLanes, uid)
		}
	}
	pairs := make(map[[2]entity.LaneUID][]entity.LinkUID)
	for _, uid := range c.linkIDs {
		if bad(entity.OnLink(uid)) {
			r.BadGeometry = append(r.BadGeometry, entity.OnLink(uid))
		}
		if len(c.FromLaneSetOf(uid)) == 0 || len(c.ToLaneSetOf(uid)) == 0 {
			r.DanglingLinks = append(r.DanglingLinks, uid)
		}
		key := [2]entity.LaneUID{uid.From, uid.To}
		pairs[key] = append(pairs[key], uid)
	}
	for _, links := range pairs {
		if len(links) > 1 {
			r.ParallelLinks = append(r.ParallelLinks, links)
		}
	}
	sort.Slice(r.ParallelLinks, func(i, j int) bool { return r.ParallelLinks[i][0].Less(r.ParallelLinks[j][0]) })

	if r.OK() {
		log.Infof("map check %s: ok", c.MapName())
	} else {
		log.Warnf("map check %s: %d bad geometry, %d dangling links, %d parallel link groups, %d isolated lanes",
			c.MapName(), len(r.BadGeometry), len(r.DanglingLinks), len(r.ParallelLinks), len(r.IsolatedLanes))
	}
	return r
}
