package mapsdk

import (
	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/road"
)

// FromPb 由城市地图protobuf构造地图
// 功能：将mapv2.Map转换为按道路/路段/车道编号的地图
// 参数：pb-地图数据
// 返回：地图
// 算法说明：
// 1. 每条道路视为单一路段（路段号0），道路内车道按LaneIds顺序从左到右编号为-1, -2, ...
// 2. 路口内车道视为车道连接线，对其每个(道路前驱车道, 道路后继车道)组合生成一条连接线，ID沿用路口车道ID
// 3. 不属于任何道路且无法映射为连接线的车道被丢弃
func FromPb(pb *mapv2.Map) *Map {
	uids := make(map[int32]entity.LaneUID, len(pb.Lanes))
	roads := make([]road.Data, 0, len(pb.Roads))
	for _, r := range pb.Roads {
		section := make([]entity.LaneUID, 0, len(r.LaneIds))
		for i, id := range r.LaneIds {
			uid := entity.LaneUID{RoadID: r.Id, SectionID: 0, LaneID: -int32(i + 1)}
			uids[id] = uid
			section = append(section, uid)
		}
		roads = append(roads, road.Data{ID: r.Id, Name: r.Name, Sections: [][]entity.LaneUID{section}})
	}

	lanes := make([]lane.Data, 0, len(uids))
	links := make([]lane.LinkData, 0)
	skipped := 0
	for _, l := range pb.Lanes {
		line := lo.Map(l.CenterLine.GetNodes(), func(node *geov2.XYPosition, _ int) geometry.Point {
			return geometry.NewPointFromPb(node)
		})
		if uid, ok := uids[l.Id]; ok {
			lanes = append(lanes, lane.Data{
				UID:   uid,
				Type:  l.Type,
				Width: l.Width,
				MaxV:  l.MaxSpeed,
				Line:  line,
			})
			continue
		}
		n := 0
		for _, pre := range l.Predecessors {
			from, ok := uids[pre.Id]
			if !ok {
				continue
			}
			for _, suc := range l.Successors {
				to, ok := uids[suc.Id]
				if !ok {
					continue
				}
				links = append(links, lane.LinkData{
					UID:  entity.LinkUID{LinkID: l.Id, From: from, To: to},
					Line: line,
				})
				n++
			}
		}
		if n == 0 {
			skipped++
		}
	}
	if skipped > 0 {
		log.Warnf("%d junction lanes have no road predecessor/successor pair, skipped", skipped)
	}
	return New(pb.GetHeader().GetName(), lanes, links, roads)
}
