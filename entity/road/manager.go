package road

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// RoadManager Road管理器
// 功能：管理所有Road实体，提供创建、查找功能
type RoadManager struct {
	data  map[int32]*Road
	roads []*Road
}

// NewManager 创建Road管理器实例
func NewManager() *RoadManager {
	return &RoadManager{
		data:  make(map[int32]*Road),
		roads: make([]*Road, 0),
	}
}

// Init 初始化所有Road
// 功能：根据原始数据初始化所有Road对象，建立ID映射关系
// 说明：使用并行处理提高初始化效率
func (m *RoadManager) Init(roads []Data) {
	m.roads = parallel.GoMap(roads, newRoad)
	m.roads = lo.UniqBy(m.roads, func(r *Road) int32 { return r.id })
	sort.Slice(m.roads, func(i, j int) bool { return m.roads[i].id < m.roads[j].id })
	m.data = lo.SliceToMap(m.roads, func(r *Road) (int32, *Road) {
		return r.id, r
	})
}

// Get 根据ID获取Road实例，如果不存在则panic
func (m *RoadManager) Get(id int32) entity.IRoad {
	if road, ok := m.data[id]; !ok {
		log.Panicf("no id %d in road data", id)
		return nil
	} else {
		return road
	}
}

// GetOrError 根据ID获取Road实例，如果不存在则返回错误
func (m *RoadManager) GetOrError(id int32) (entity.IRoad, error) {
	if road, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in road data: %w", id, entity.ErrEntityUnavailable)
	} else {
		return road, nil
	}
}

// Roads 全部道路（按ID排序）
func (m *RoadManager) Roads() []entity.IRoad {
	return lo.Map(m.roads, func(r *Road, _ int) entity.IRoad { return r })
}
