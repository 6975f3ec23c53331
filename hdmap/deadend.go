package hdmap

import (
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/container"
)

// makeDeadEnds 识别死路并向上游传播终点
// 算法说明：
// 1. 并行找出后继车道与出连接线均为空的车道
// 2. 按车道顺序逐个调用MarkDeadEnd，终点为该车道的终点
func (c *Cache) makeDeadEnds() {
	dead := parallel.GoMapFilter(c.laneIDs, func(uid entity.LaneUID) (entity.LaneUID, bool) {
		return uid, len(c.NextLanesOf(uid)) == 0 && len(c.NextLinksFrom(uid)) == 0
	})
	sort.Slice(dead, func(i, j int) bool { return dead[i].Less(dead[j]) })
	for _, uid := range dead {
		c.MarkDeadEnd(uid, c.EndOf(entity.OnLane(uid)))
	}
}

// MarkDeadEnd 标记死路
// 功能：将车道标记为通向end的死路，并沿前驱车道回溯
// 参数：uid-死路车道，end-死路终点
// 算法说明：
// 1. 广度优先遍历PrevLanesOf，已访问的车道不再入队
// 2. 前驱车道的全部后继车道与出连接线终点车道都已被标记且终点均为end时，前驱车道才被标记
// 3. 前驱车道只在被标记时记为已访问，其余后继稍后被标记时会再次检查
// 4. 出队次数达到dead_end_max_iterations时停止
func (c *Cache) MarkDeadEnd(uid entity.LaneUID, end geometry.Point) {
	c.deadEnds.Set(uid, end)
	visited := map[entity.LaneUID]struct{}{uid: {}}
	queue := container.NewQueue(uid)
	for i := 0; i < c.cfg.DeadEndMaxIterations; i++ {
		cur, ok := queue.Pop()
		if !ok {
			return
		}
		for _, prev := range c.PrevLanesOf(cur) {
			if _, ok := visited[prev]; ok {
				continue
			}
			if !c.onlyLeadsToDeadEnd(prev, end) {
				continue
			}
			visited[prev] = struct{}{}
			c.deadEnds.Set(prev, end)
			queue.Push(prev)
		}
	}
	if queue.Len() > 0 {
		log.Warnf("dead end %v: stop propagation after %d iterations", uid, c.cfg.DeadEndMaxIterations)
	}
}

// onlyLeadsToDeadEnd 车道的所有去向是否都是终点为end的死路
func (c *Cache) onlyLeadsToDeadEnd(uid entity.LaneUID, end geometry.Point) bool {
	leadsTo := func(next entity.LaneUID) bool {
		p, ok := c.deadEnds.Get(next)
		return ok && p == end
	}
	for _, next := range c.NextLanesOf(uid) {
		if !leadsTo(next) {
			return false
		}
	}
	for _, link := range c.NextLinksFrom(uid) {
		for _, to := range c.ToLaneSetOf(link) {
			if !leadsTo(to) {
				return false
			}
		}
	}
	return true
}

// IsDeadEnd 车道是否为死路
// 返回：死路终点，是否为死路
func (c *Cache) IsDeadEnd(uid entity.LaneUID) (geometry.Point, bool) {
	return c.deadEnds.Get(uid)
}
