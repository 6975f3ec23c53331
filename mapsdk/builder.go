package mapsdk

import (
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/road"
)

// Builder 以编程方式构造地图
// 说明：道路与路段由车道标识自动推导，路段内车道按车道ID从左到右排序
type Builder struct {
	name      string
	lanes     []lane.Data
	links     []lane.LinkData
	roadNames map[int32]string
}

// NewBuilder 创建地图构造器
func NewBuilder(name string) *Builder {
	return &Builder{name: name, roadNames: make(map[int32]string)}
}

// Lane 添加车道
func (b *Builder) Lane(uid entity.LaneUID, typ mapv2.LaneType, line ...geometry.Point) *Builder {
	b.lanes = append(b.lanes, lane.Data{UID: uid, Type: typ, Width: 3.5, MaxV: 16.67, Line: line})
	return b
}

// DrivingLane 添加行车道
func (b *Builder) DrivingLane(uid entity.LaneUID, line ...geometry.Point) *Builder {
	return b.Lane(uid, mapv2.LaneType_LANE_TYPE_DRIVING, line...)
}

// Link 添加车道连接线
func (b *Builder) Link(id int32, from, to entity.LaneUID, line ...geometry.Point) *Builder {
	b.links = append(b.links, lane.LinkData{
		UID:  entity.LinkUID{LinkID: id, From: from, To: to},
		Line: line,
	})
	return b
}

// RoadName 设置道路名
func (b *Builder) RoadName(id int32, name string) *Builder {
	b.roadNames[id] = name
	return b
}

// Build 构造地图
func (b *Builder) Build() *Map {
	sections := make(map[int32]map[int32][]entity.LaneUID)
	for _, l := range b.lanes {
		if sections[l.UID.RoadID] == nil {
			sections[l.UID.RoadID] = make(map[int32][]entity.LaneUID)
		}
		sections[l.UID.RoadID][l.UID.SectionID] = append(sections[l.UID.RoadID][l.UID.SectionID], l.UID)
	}
	roads := make([]road.Data, 0, len(sections))
	for id, secs := range sections {
		count := lo.Max(lo.Keys(secs)) + 1
		data := road.Data{ID: id, Name: b.roadNames[id], Sections: make([][]entity.LaneUID, count)}
		for sid, uids := range secs {
			sort.Slice(uids, func(i, j int) bool { return uids[i].Less(uids[j]) })
			data.Sections[sid] = uids
		}
		roads = append(roads, data)
	}
	return New(b.name, b.lanes, b.links, roads)
}
