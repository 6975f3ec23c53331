package road

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// Data 道路原始数据
type Data struct {
	ID       int32
	Name     string
	Sections [][]entity.LaneUID // 各路段内的车道，按从左到右排序
}

// Road 道路实体
// 功能：表示地图中的道路，由若干首尾相接的路段组成，每个路段内包含平行车道
type Road struct {
	id       int32
	name     string
	sections [][]entity.LaneUID // 路段内车道，按从左到右排序
}

// newRoad 创建并初始化一个新的Road实例
// 功能：根据原始数据创建Road对象，丢弃路段号与道路不一致的车道
// 参数：base-道路原始数据
// 返回：初始化完成的Road实例
func newRoad(base Data) *Road {
	r := &Road{
		id:       base.ID,
		name:     base.Name,
		sections: make([][]entity.LaneUID, len(base.Sections)),
	}
	for i, lanes := range base.Sections {
		r.sections[i] = make([]entity.LaneUID, 0, len(lanes))
		for _, uid := range lanes {
			if uid.RoadID != r.id || uid.SectionID != int32(i) {
				log.Warnf("Road %d section %d: drop foreign lane %v", r.id, i, uid)
				continue
			}
			r.sections[i] = append(r.sections[i], uid)
		}
	}
	return r
}

// ID 获取Road的唯一标识符
// 返回：Road的ID，如果Road为nil则返回-1
func (r *Road) ID() int32 {
	if r == nil {
		return -1
	}
	return r.id
}

// String 获取Road的字符串表示
func (r *Road) String() string {
	return fmt.Sprintf("Road %d", r.id)
}

// Name 获取Road的名称
func (r *Road) Name() string {
	return r.name
}

// SectionCount 获取路段数量
func (r *Road) SectionCount() int32 {
	return int32(len(r.sections))
}

// LanesUnderSection 获取路段内的车道，路段不存在时返回nil
func (r *Road) LanesUnderSection(section int32) []entity.LaneUID {
	if section < 0 || int(section) >= len(r.sections) {
		return nil
	}
	return r.sections[section]
}
