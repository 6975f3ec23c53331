package hdmap

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// buildLinkIndex 建立连接线倒排索引
// 功能：每条连接线同时写入车道出/入连接线、连接线起/终车道、道路出/入连接线六个索引，起终车道不全可解析的连接线不进入索引
// 说明：在Load中单线程执行，完成后只读
func (c *Cache) buildLinkIndex() {
	dangling := 0
	for _, uid := range c.linkIDs {
		_, fromOk := c.Lane(uid.From)
		_, toOk := c.Lane(uid.To)
		if !fromOk || !toOk {
			dangling++
			continue
		}
		c.laneOutLinks[uid.From] = append(c.laneOutLinks[uid.From], uid)
		c.laneInLinks[uid.To] = append(c.laneInLinks[uid.To], uid)
		c.linkFromLanes[uid] = []entity.LaneUID{uid.From}
		c.linkToLanes[uid] = []entity.LaneUID{uid.To}
		c.roadOutLinks[uid.From.RoadID] = append(c.roadOutLinks[uid.From.RoadID], uid)
		c.roadInLinks[uid.To.RoadID] = append(c.roadInLinks[uid.To.RoadID], uid)
	}
	if dangling > 0 {
		log.Warnf("%d links have unresolvable from/to lanes", dangling)
	}
}

// NextLinksFrom 从车道出发的未被过滤的连接线
func (c *Cache) NextLinksFrom(uid entity.LaneUID) []entity.LinkUID {
	v, _ := c.nextLinks.GetOrInsertWith(uid, func() []entity.LinkUID {
		computeTotal.WithLabelValues("next_links").Inc()
		return c.unblocked(c.laneOutLinks[uid])
	})
	return v
}

// PrevLinksTo 到达车道的未被过滤的连接线
func (c *Cache) PrevLinksTo(uid entity.LaneUID) []entity.LinkUID {
	v, _ := c.prevLinks.GetOrInsertWith(uid, func() []entity.LinkUID {
		computeTotal.WithLabelValues("prev_links").Inc()
		return c.unblocked(c.laneInLinks[uid])
	})
	return v
}

// FromLaneSetOf 连接线的起点车道集合
func (c *Cache) FromLaneSetOf(link entity.LinkUID) []entity.LaneUID {
	return c.linkFromLanes[link]
}

// ToLaneSetOf 连接线的终点车道集合
func (c *Cache) ToLaneSetOf(link entity.LinkUID) []entity.LaneUID {
	return c.linkToLanes[link]
}

func (c *Cache) unblocked(links []entity.LinkUID) []entity.LinkUID {
	return lo.Filter(links, func(uid entity.LinkUID, _ int) bool {
		return !c.blacklist.Has(uid)
	})
}

// NextLanesOf 车道的后继车道
// 功能：非末路段的车道按"本车道终点与下一路段车道起点距离不超过阈值"匹配；
// 末路段的车道取长度不超过阈值的出连接线的终点车道（首尾直接相接的两条道路）
// 说明：长度超过阈值的连接线是真实的路口连接，只通过NextLinksFrom提供
func (c *Cache) NextLanesOf(uid entity.LaneUID) []entity.LaneUID {
	v, _ := c.nextLanes.GetOrInsertWith(uid, func() []entity.LaneUID {
		computeTotal.WithLabelValues("next_lanes").Inc()
		if _, ok := c.Lane(uid); !ok {
			return nil
		}
		res := make([]entity.LaneUID, 0)
		if uid.SectionID+1 < c.SectionCount(uid.RoadID) {
			end := c.EndOf(entity.OnLane(uid))
			next := entity.SectionUID{RoadID: uid.RoadID, SectionID: uid.SectionID + 1}
			for _, other := range c.LanesUnderSection(next) {
				if distance2D(end, c.StartOf(entity.OnLane(other))) <= c.cfg.ConnectLaneDist {
					res = append(res, other)
				}
			}
		} else {
			for _, link := range c.NextLinksFrom(uid) {
				if c.LengthOf(entity.OnLink(link)) <= c.cfg.ConnectLaneDist {
					res = append(res, c.ToLaneSetOf(link)...)
				}
			}
		}
		return sortedLanes(res)
	})
	return v
}

// PrevLanesOf 车道的前驱车道，与NextLanesOf对称
func (c *Cache) PrevLanesOf(uid entity.LaneUID) []entity.LaneUID {
	v, _ := c.prevLanes.GetOrInsertWith(uid, func() []entity.LaneUID {
		computeTotal.WithLabelValues("prev_lanes").Inc()
		if _, ok := c.Lane(uid); !ok {
			return nil
		}
		res := make([]entity.LaneUID, 0)
		if uid.SectionID > 0 {
			start := c.StartOf(entity.OnLane(uid))
			prev := entity.SectionUID{RoadID: uid.RoadID, SectionID: uid.SectionID - 1}
			for _, other := range c.LanesUnderSection(prev) {
				if distance2D(c.EndOf(entity.OnLane(other)), start) <= c.cfg.ConnectLaneDist {
					res = append(res, other)
				}
			}
		} else {
			for _, link := range c.PrevLinksTo(uid) {
				if c.LengthOf(entity.OnLink(link)) <= c.cfg.ConnectLaneDist {
					res = append(res, c.FromLaneSetOf(link)...)
				}
			}
		}
		return sortedLanes(res)
	})
	return v
}

// NextRoadsOf 道路的后继道路（经由未被过滤的连接线）
func (c *Cache) NextRoadsOf(roadID int32) []int32 {
	v, _ := c.nextRoads.GetOrInsertWith(roadID, func() []int32 {
		computeTotal.WithLabelValues("next_roads").Inc()
		return sortedRoads(lo.Map(c.LinksFromRoad(roadID), func(uid entity.LinkUID, _ int) int32 {
			return uid.To.RoadID
		}))
	})
	return v
}

// PrevRoadsOf 道路的前驱道路
func (c *Cache) PrevRoadsOf(roadID int32) []int32 {
	v, _ := c.prevRoads.GetOrInsertWith(roadID, func() []int32 {
		computeTotal.WithLabelValues("prev_roads").Inc()
		return sortedRoads(lo.Map(c.unblocked(c.roadInLinks[roadID]), func(uid entity.LinkUID, _ int) int32 {
			return uid.From.RoadID
		}))
	})
	return v
}

// LinksFromRoad 从道路出发的未被过滤的连接线
func (c *Cache) LinksFromRoad(roadID int32) []entity.LinkUID {
	return c.unblocked(c.roadOutLinks[roadID])
}

// LinksBetweenRoads 两条道路之间的未被过滤的连接线
func (c *Cache) LinksBetweenRoads(from, to int32) []entity.LinkUID {
	v, _ := c.roadLinks.GetOrInsertWith([2]int32{from, to}, func() []entity.LinkUID {
		computeTotal.WithLabelValues("road_links").Inc()
		return lo.Filter(c.LinksFromRoad(from), func(uid entity.LinkUID, _ int) bool {
			return uid.To.RoadID == to
		})
	})
	return v
}

// invalidateLink 删除受连接线影响的拓扑缓存，下次查询时重新计算
func (c *Cache) invalidateLink(link entity.LinkUID) {
	c.nextLinks.Delete(link.From)
	c.nextLanes.Delete(link.From)
	c.prevLinks.Delete(link.To)
	c.prevLanes.Delete(link.To)
	c.nextRoads.Delete(link.From.RoadID)
	c.prevRoads.Delete(link.To.RoadID)
	c.roadLinks.Delete([2]int32{link.From.RoadID, link.To.RoadID})
	c.junctionPoint.Clear()
}
