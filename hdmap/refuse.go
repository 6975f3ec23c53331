package hdmap

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// specialRefuse 事件触发的区间禁止变道
type specialRefuse struct {
	eventID int64
	side    int
	sStart  float64
	sEnd    float64
}

// makeRefuseLaneChange 建立禁止变道表
// 算法说明：
// 1. 配置中的双向/左/右车道列表分别写入两侧/左侧/右侧
// 2. 配置中的道路列表展开为道路全部路段的全部车道
// 3. 未关闭自动识别时，后继或前驱车道多于一条的车道及其全部后继/前驱车道两侧都禁止变道
func (c *Cache) makeRefuseLaneChange() {
	add := func(uids []entity.LaneUID, sides ...int) {
		for _, uid := range uids {
			for _, side := range sides {
				c.refuse[side].Add(uid)
			}
		}
	}
	for _, e := range c.filter.Entries {
		add(parseLanes(e.RefuseDualLanes), entity.LEFT, entity.RIGHT)
		add(parseLanes(e.RefuseLeftLanes), entity.LEFT)
		add(parseLanes(e.RefuseRightLanes), entity.RIGHT)
		add(c.lanesOfRoads(e.RefuseDualRoads), entity.LEFT, entity.RIGHT)
		add(c.lanesOfRoads(e.RefuseLeftRoads), entity.LEFT)
		add(c.lanesOfRoads(e.RefuseRightRoads), entity.RIGHT)
	}
	if c.cfg.DisableAutoRefuse {
		return
	}
	for _, uid := range c.laneIDs {
		for _, group := range [][]entity.LaneUID{c.NextLanesOf(uid), c.PrevLanesOf(uid)} {
			if len(group) > 1 {
				add([]entity.LaneUID{uid}, entity.LEFT, entity.RIGHT)
				add(group, entity.LEFT, entity.RIGHT)
			}
		}
	}
}

func (c *Cache) lanesOfRoads(ids []int32) []entity.LaneUID {
	res := make([]entity.LaneUID, 0)
	for _, id := range ids {
		count := c.SectionCount(id)
		if count == 0 {
			log.Warnf("filter: no road %d", id)
		}
		for s := int32(0); s < count; s++ {
			res = append(res, c.LanesUnderSection(entity.SectionUID{RoadID: id, SectionID: s})...)
		}
	}
	return res
}

// RefuseLaneChange 车道在side一侧是否禁止变道
func (c *Cache) RefuseLaneChange(uid entity.LaneUID, side int) bool {
	return c.refuse[side].Has(uid)
}

// IsDstRefuseLaneChange 向side一侧变道时，目标车道是否拒绝从反方向驶入
// 返回：side一侧的相邻车道存在且在另一侧禁止变道时为true
func (c *Cache) IsDstRefuseLaneChange(uid entity.LaneUID, side int) bool {
	dst, ok := c.NeighborLane(uid, side)
	if !ok {
		return false
	}
	return c.refuse[1-side].Has(dst)
}

// AddSpecialRefuseLaneChange 添加事件触发的区间禁止变道
// 参数：eventID-事件ID，uid-车道，side-方向，sStart/sEnd-生效区间(sStart, sEnd]
func (c *Cache) AddSpecialRefuseLaneChange(eventID int64, uid entity.LaneUID, side int, sStart, sEnd float64) {
	c.specialRefuse.Update(uid, func(old []specialRefuse, _ bool) []specialRefuse {
		res := make([]specialRefuse, 0, len(old)+1)
		res = append(res, old...)
		return append(res, specialRefuse{eventID: eventID, side: side, sStart: sStart, sEnd: sEnd})
	})
}

// RemoveSpecialRefuseLaneChange 删除事件添加的全部区间禁止变道
func (c *Cache) RemoveSpecialRefuseLaneChange(eventID int64) {
	for _, uid := range c.specialRefuse.Keys() {
		c.specialRefuse.Update(uid, func(old []specialRefuse, _ bool) []specialRefuse {
			return lo.Filter(old, func(r specialRefuse, _ int) bool { return r.eventID != eventID })
		})
	}
}

// IsSpecialRefuseLaneChange 车道位置s处side一侧是否被事件禁止变道
func (c *Cache) IsSpecialRefuseLaneChange(uid entity.LaneUID, side int, s float64) bool {
	rs, ok := c.specialRefuse.Get(uid)
	if !ok {
		return false
	}
	return lo.ContainsBy(rs, func(r specialRefuse) bool {
		return r.side == side && s > r.sStart && s <= r.sEnd
	})
}
