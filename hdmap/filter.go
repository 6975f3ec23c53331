package hdmap

import (
	"encoding/json"
	"os"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// LanePair 起终车道对，车道以"road.section.lane"表示
type LanePair struct {
	FromLaneUID string `json:"fromLaneUid"`
	ToLaneUID   string `json:"toLaneUid"`
}

// RoadPair 起终道路对
type RoadPair struct {
	FromRoadID int32 `json:"fromRoadId"`
	ToRoadID   int32 `json:"toRoadId"`
}

// ExpandLinkCfg 扩展视野的一条额外连接线
type ExpandLinkCfg struct {
	LanePair
	Distance float64 `json:"distance"`
}

// ExpandVisionCfg 扩展视野配置
type ExpandVisionCfg struct {
	SourceLink  LanePair        `json:"source_link"`
	ExpandLinks []ExpandLinkCfg `json:"expand_links"`
}

// FilterEntry 一张地图的过滤配置
type FilterEntry struct {
	HDMapName          string            `json:"HDMapNameWithExtern"`
	BlacklistLanePairs []LanePair        `json:"blacklist_from_to_laneUid"`
	BlacklistRoadPairs []RoadPair        `json:"blacklist_from_to_roadId"`
	RefuseDualLanes    []string          `json:"refuse_switch_dual_direction_lane"`
	RefuseLeftLanes    []string          `json:"refuse_switch_left_lane"`
	RefuseRightLanes   []string          `json:"refuse_switch_right_lane"`
	RefuseDualRoads    []int32           `json:"refuse_switch_dual_direction_road"`
	RefuseLeftRoads    []int32           `json:"refuse_switch_left_road"`
	RefuseRightRoads   []int32           `json:"refuse_switch_right_road"`
	ExpandVision       []ExpandVisionCfg `json:"expand_vision"`
}

// Filter 当前地图的全部过滤配置（多个匹配项按顺序合并）
type Filter struct {
	Entries []FilterEntry
}

type filterFile struct {
	Entries []FilterEntry `json:"hdmap_advanced_cfg"`
}

// ParseFilter 解析过滤配置并挑选出与地图名匹配的项
// 参数：data-JSON文档，mapName-当前地图名
// 返回：匹配的过滤配置（可能为空），文档格式错误时返回error
func ParseFilter(data []byte, mapName string) (*Filter, error) {
	var f filterFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &Filter{
		Entries: lo.Filter(f.Entries, func(e FilterEntry, _ int) bool { return e.HDMapName == mapName }),
	}, nil
}

// LoadFilter 读取过滤配置文件
// 说明：文件不存在、格式错误或没有匹配当前地图的项时，返回空配置并记录警告
func LoadFilter(path, mapName string) *Filter {
	if path == "" {
		return &Filter{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("filter file %s: %v, use empty filter", path, err)
		return &Filter{}
	}
	f, err := ParseFilter(data, mapName)
	if err != nil {
		log.Warnf("filter file %s: %v, use empty filter", path, err)
		return &Filter{}
	}
	if len(f.Entries) == 0 {
		log.Warnf("filter file %s has no entry for map %s", path, mapName)
	}
	return f
}

// parseLanes 解析车道字符串，跳过格式错误的项
func parseLanes(ss []string) []entity.LaneUID {
	res := make([]entity.LaneUID, 0, len(ss))
	for _, s := range ss {
		uid, err := entity.ParseLaneUID(s)
		if err != nil {
			log.Warnf("filter: %v", err)
			continue
		}
		res = append(res, uid)
	}
	return res
}

func parseLanePair(p LanePair) ([2]entity.LaneUID, bool) {
	from, err1 := entity.ParseLaneUID(p.FromLaneUID)
	to, err2 := entity.ParseLaneUID(p.ToLaneUID)
	if err1 != nil || err2 != nil {
		log.Warnf("filter: bad lane pair %s -> %s", p.FromLaneUID, p.ToLaneUID)
		return [2]entity.LaneUID{}, false
	}
	return [2]entity.LaneUID{from, to}, true
}

// applyFilterBlacklist 按配置与车道类型建立黑名单
// 算法说明：
// 1. 起终车道对或起终道路对命中的连接线
// 2. 终点车道无法解析或不是行车道的连接线
func (c *Cache) applyFilterBlacklist() {
	lanePairs := make(map[[2]entity.LaneUID]struct{})
	roadPairs := make(map[RoadPair]struct{})
	for _, e := range c.filter.Entries {
		for _, p := range e.BlacklistLanePairs {
			if pair, ok := parseLanePair(p); ok {
				lanePairs[pair] = struct{}{}
			}
		}
		for _, p := range e.BlacklistRoadPairs {
			roadPairs[p] = struct{}{}
		}
	}
	for _, uid := range c.linkIDs {
		_, byLane := lanePairs[[2]entity.LaneUID{uid.From, uid.To}]
		_, byRoad := roadPairs[RoadPair{FromRoadID: uid.From.RoadID, ToRoadID: uid.To.RoadID}]
		to, ok := c.Lane(uid.To)
		notDriving := !ok || to.Type() != mapv2.LaneType_LANE_TYPE_DRIVING
		if byLane || byRoad || notDriving {
			c.AddToBlacklist(uid)
		}
	}
}

// IsBlacklisted 连接线是否被过滤
func (c *Cache) IsBlacklisted(link entity.LinkUID) bool {
	return c.blacklist.Has(link)
}

// AddToBlacklist 过滤连接线
// 说明：已计算的受影响拓扑项会被删除，下次查询时按新黑名单重新计算；死路表与禁止变道表不随之更新。
// 切片索引的邻接需另外调用hashed.Index.Relink，task.Context.AddToBlacklist会一并处理
func (c *Cache) AddToBlacklist(link entity.LinkUID) {
	if !c.blacklist.Add(link) {
		return
	}
	blacklistSize.Inc()
	c.invalidateLink(link)
}

// makeExpandVision 建立扩展视野表
func (c *Cache) makeExpandVision() {
	for _, e := range c.filter.Entries {
		for _, ev := range e.ExpandVision {
			src, ok := parseLanePair(ev.SourceLink)
			if !ok {
				continue
			}
			for _, l := range ev.ExpandLinks {
				pair, ok := parseLanePair(l.LanePair)
				if !ok {
					continue
				}
				c.expandVision[src] = append(c.expandVision[src], entity.ExpandLink{
					From: pair[0], To: pair[1], Distance: l.Distance,
				})
			}
		}
	}
}

// ExpandVision 连接线的扩展视野
// 返回：需要额外观察的连接线（以起终车道表示）与观察距离
func (c *Cache) ExpandVision(link entity.LinkUID) []entity.ExpandLink {
	return c.expandVision[[2]entity.LaneUID{link.From, link.To}]
}
