package hdmap

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// RoadStartEnd 道路首尾点
// 返回：首路段第一条可解析车道的起点，末路段第一条可解析车道的终点，道路是否可用
func (c *Cache) RoadStartEnd(roadID int32) (start, end geometry.Point, ok bool) {
	v, _ := c.roadStartEnd.GetOrInsertWith(roadID, func() roadEnds {
		computeTotal.WithLabelValues("road_start_end").Inc()
		count := c.SectionCount(roadID)
		if count == 0 {
			return roadEnds{}
		}
		first := c.LanesUnderSection(entity.SectionUID{RoadID: roadID, SectionID: 0})
		last := c.LanesUnderSection(entity.SectionUID{RoadID: roadID, SectionID: count - 1})
		if len(first) == 0 || len(last) == 0 {
			return roadEnds{}
		}
		return roadEnds{
			start: c.StartOf(entity.OnLane(first[0])),
			end:   c.EndOf(entity.OnLane(last[0])),
			ok:    true,
		}
	})
	return v.start, v.end, v.ok
}

// RoadToNextJunctionPoint 沿道路前进到下一个真实路口的位置
// 功能：跳过只由短连接线首尾相接、且只有唯一后继的道路
// 算法说明：
// 1. 当前道路的全部出连接线长度不超过junction_link_length，且唯一后继道路不是自身时，前进到后继道路
// 2. 已访问的道路不再进入
// 3. 途经道路中距离原道路终点最远的终点即为结果
func (c *Cache) RoadToNextJunctionPoint(roadID int32) (geometry.Point, bool) {
	v, _ := c.junctionPoint.GetOrInsertWith(roadID, func() roadEnds {
		computeTotal.WithLabelValues("junction_point").Inc()
		_, origin, ok := c.RoadStartEnd(roadID)
		if !ok {
			return roadEnds{}
		}
		best, bestDist := origin, 0.0
		visited := map[int32]struct{}{roadID: {}}
		cur := roadID
		for {
			next, ok := c.onlySuccessorRoad(cur)
			if !ok {
				break
			}
			if _, ok := visited[next]; ok {
				break
			}
			visited[next] = struct{}{}
			cur = next
			if _, end, ok := c.RoadStartEnd(cur); ok {
				if d := distance2D(origin, end); d > bestDist {
					best, bestDist = end, d
				}
			}
		}
		return roadEnds{end: best, ok: true}
	})
	return v.end, v.ok
}

func (c *Cache) onlySuccessorRoad(roadID int32) (int32, bool) {
	for _, link := range c.LinksFromRoad(roadID) {
		if c.LengthOf(entity.OnLink(link)) > c.cfg.JunctionLinkLength {
			return 0, false
		}
	}
	next := c.NextRoadsOf(roadID)
	if len(next) != 1 || next[0] == roadID {
		return 0, false
	}
	return next[0], true
}
