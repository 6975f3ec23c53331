// Package mapsdk 原始地图数据访问层：车道、车道连接线、道路
package mapsdk

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/road"
)

// Map 原始地图
// 功能：持有车道/连接线/道路管理器，按标识或按坐标解析原始地图对象
// 说明：构建后只读，可并发访问
type Map struct {
	name        string
	laneManager *lane.LaneManager
	roadManager *road.RoadManager
}

// New 由原始数据创建地图
// 参数：name-地图名（含扩展名），lanes/links/roads-原始数据
func New(name string, lanes []lane.Data, links []lane.LinkData, roads []road.Data) *Map {
	m := &Map{
		name:        name,
		laneManager: lane.NewManager(),
		roadManager: road.NewManager(),
	}
	m.laneManager.Init(lanes, links)
	m.roadManager.Init(roads)
	log.Infof("map %s: %d lanes, %d links, %d roads",
		name, len(m.laneManager.Lanes()), len(m.laneManager.Links()), len(m.roadManager.Roads()))
	return m
}

func (m *Map) Name() string {
	return m.name
}

func (m *Map) Lane(uid entity.LaneUID) (entity.ILane, error) {
	return m.laneManager.GetOrError(uid)
}

func (m *Map) Link(uid entity.LinkUID) (entity.ILaneLink, error) {
	return m.laneManager.GetLinkOrError(uid)
}

func (m *Map) Road(id int32) (entity.IRoad, error) {
	return m.roadManager.GetOrError(id)
}

func (m *Map) Lanes() []entity.ILane {
	return m.laneManager.Lanes()
}

func (m *Map) Links() []entity.ILaneLink {
	return m.laneManager.Links()
}

func (m *Map) Roads() []entity.IRoad {
	return m.roadManager.Roads()
}

// NearestLane 查找距离pos最近的车道
// 功能：将坐标投影到每条车道上，选取投影距离最小的车道
// 返回：车道、投影s坐标；地图中没有车道时返回ErrEntityUnavailable
func (m *Map) NearestLane(pos geometry.Point) (entity.ILane, float64, error) {
	var best entity.ILane
	bestS, bestD := 0.0, math.Inf(1)
	for _, l := range m.laneManager.Lanes() {
		s := l.ProjectToLane(pos)
		p := l.GetPositionByS(s)
		if d := math.Hypot(p.X-pos.X, p.Y-pos.Y); d < bestD {
			best, bestS, bestD = l, s, d
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("no lane near %v: %w", pos, entity.ErrEntityUnavailable)
	}
	return best, bestS, nil
}
