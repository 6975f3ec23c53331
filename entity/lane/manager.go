package lane

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// LaneManager Lane管理器
// 功能：管理所有Lane与Link实体，提供创建、查找功能
type LaneManager struct {
	data     map[entity.LaneUID]*Lane
	lanes    []*Lane
	linkData map[entity.LinkUID]*Link
	links    []*Link
}

// NewManager 创建Lane管理器实例
// 功能：初始化Lane管理器，创建内部数据结构
// 返回：新创建的Lane管理器实例
func NewManager() *LaneManager {
	return &LaneManager{
		data:     make(map[entity.LaneUID]*Lane),
		lanes:    make([]*Lane, 0),
		linkData: make(map[entity.LinkUID]*Link),
		links:    make([]*Link, 0),
	}
}

// Init 初始化所有Lane与Link
// 功能：根据原始数据初始化所有Lane/Link对象，建立ID映射关系
// 参数：lanes-车道原始数据，links-连接线原始数据
// 说明：使用并行处理提高初始化效率，中心线非法的实体被跳过；重复ID保留第一个
func (m *LaneManager) Init(lanes []Data, links []LinkData) {
	m.lanes = parallel.GoMapFilter(lanes, newLane)
	m.links = parallel.GoMapFilter(links, newLink)
	m.lanes = lo.UniqBy(m.lanes, func(l *Lane) entity.LaneUID { return l.uid })
	m.links = lo.UniqBy(m.links, func(l *Link) entity.LinkUID { return l.uid })
	sort.Slice(m.lanes, func(i, j int) bool { return m.lanes[i].uid.Less(m.lanes[j].uid) })
	sort.Slice(m.links, func(i, j int) bool { return m.links[i].uid.Less(m.links[j].uid) })
	m.data = lo.SliceToMap(m.lanes, func(l *Lane) (entity.LaneUID, *Lane) {
		return l.uid, l
	})
	m.linkData = lo.SliceToMap(m.links, func(l *Link) (entity.LinkUID, *Link) {
		return l.uid, l
	})
	if n := len(lanes) - len(m.lanes); n > 0 {
		log.Warnf("%d lanes skipped", n)
	}
	if n := len(links) - len(m.links); n > 0 {
		log.Warnf("%d links skipped", n)
	}
}

// Get 根据ID获取Lane实例
// 功能：通过车道标识查找对应的Lane对象，如果不存在则panic
func (m *LaneManager) Get(uid entity.LaneUID) entity.ILane {
	if lane, ok := m.data[uid]; !ok {
		log.Panicf("no id %v in lane data", uid)
		return nil
	} else {
		return lane
	}
}

// GetOrError 根据ID获取Lane实例（带错误处理）
// 功能：通过车道标识查找对应的Lane对象，如果不存在则返回错误
func (m *LaneManager) GetOrError(uid entity.LaneUID) (entity.ILane, error) {
	if lane, ok := m.data[uid]; !ok {
		return nil, fmt.Errorf("no id %v in lane data: %w", uid, entity.ErrEntityUnavailable)
	} else {
		return lane, nil
	}
}

// GetLinkOrError 根据ID获取Link实例，如果不存在则返回错误
func (m *LaneManager) GetLinkOrError(uid entity.LinkUID) (entity.ILaneLink, error) {
	if link, ok := m.linkData[uid]; !ok {
		return nil, fmt.Errorf("no id %v in link data: %w", uid, entity.ErrEntityUnavailable)
	} else {
		return link, nil
	}
}

// Lanes 全部车道（按标识排序）
func (m *LaneManager) Lanes() []entity.ILane {
	return lo.Map(m.lanes, func(l *Lane, _ int) entity.ILane { return l })
}

// Links 全部连接线（按标识排序）
func (m *LaneManager) Links() []entity.ILaneLink {
	return lo.Map(m.links, func(l *Link, _ int) entity.ILaneLink { return l })
}
