package vehicle

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/randengine"
)

var _ entity.IVehicleManager = (*Manager)(nil)

// Manager 探测车管理器
// 功能：管理全部探测车，提供投放、查找、准备与更新功能
type Manager struct {
	ctx entity.ITaskContext

	data     map[int32]*Vehicle
	vehicles *container.IncrementalArray[*Vehicle]

	spawnLanes []entity.LaneUID // 可投放的行车道

	inserted []*Vehicle
	removed  []int32
	mtx      sync.Mutex
	nextID   int32
}

// NewManager 创建探测车管理器
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:      ctx,
		data:     make(map[int32]*Vehicle),
		vehicles: container.NewIncrementalArray[*Vehicle](),
	}
}

// Init 按探测车配置在随机行车道的随机位置投放车辆
// 说明：每辆车的随机数种子为配置种子加车辆ID，结果与并行调度无关
func (m *Manager) Init() {
	probe := m.ctx.RuntimeConfig().Probe
	cache := m.ctx.MapCache()
	m.vehicles = container.NewIncrementalArray[*Vehicle]()
	m.spawnLanes = lo.Filter(cache.Lanes(), func(u entity.LaneUID, _ int) bool {
		return m.drivable(u) && cache.LengthOf(entity.OnLane(u)) > 0
	})
	if len(m.spawnLanes) == 0 {
		if probe.Vehicles > 0 {
			log.Warnf("no driving lane in map %s, skip %d probe vehicles", cache.MapName(), probe.Vehicles)
		}
		m.data = make(map[int32]*Vehicle)
		return
	}
	vehicles := parallel.GoMap(lo.Range(int(probe.Vehicles)), func(i int) *Vehicle {
		seed := probe.Seed + uint64(i)
		rng := randengine.New(seed)
		uid, _ := m.randomLane(rng)
		s := rng.Float64() * cache.LengthOf(entity.OnLane(uid))
		v := newVehicle(m.ctx, m, int32(i), entity.OnLane(uid), s, seed)
		m.vehicles.Add(v)
		return v
	})
	m.data = lo.SliceToMap(vehicles, func(v *Vehicle) (int32, *Vehicle) {
		return v.id, v
	})
	m.nextID = probe.Vehicles
	log.Infof("spawned %d probe vehicles on %d lanes", len(vehicles), len(m.spawnLanes))
}

// Add 在指定位置投放一辆车，下一次Prepare时生效
func (m *Manager) Add(ref entity.LocationRef, s float64) *Vehicle {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	id := m.nextID
	m.nextID++
	v := newVehicle(m.ctx, m, id, ref, s, m.ctx.RuntimeConfig().Probe.Seed+uint64(id))
	m.inserted = append(m.inserted, v)
	return v
}

// Remove 移除车辆，下一次Prepare时生效
func (m *Manager) Remove(id int32) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.removed = append(m.removed, id)
}

// Get 根据ID获取车辆，不存在则panic
func (m *Manager) Get(id int32) *Vehicle {
	if v, ok := m.data[id]; !ok {
		log.Panicf("no id %d in vehicle data", id)
		return nil
	} else {
		return v
	}
}

// GetOrError 根据ID获取车辆
func (m *Manager) GetOrError(id int32) (*Vehicle, error) {
	if v, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in vehicle data: %w", id, entity.ErrEntityUnavailable)
	} else {
		return v, nil
	}
}

// Vehicles 已生效的全部车辆
func (m *Manager) Vehicles() []*Vehicle {
	return m.vehicles.Data()
}

// Prepare 准备阶段：执行增删，更新快照与切片节点登记
func (m *Manager) Prepare() {
	m.mtx.Lock()
	for _, v := range m.inserted {
		if _, ok := m.data[v.id]; ok {
			log.Panicf("vehicle id %d already exists", v.id)
		}
		m.data[v.id] = v
		m.vehicles.Add(v)
	}
	m.inserted = m.inserted[:0]
	for _, id := range m.removed {
		if v, ok := m.data[id]; ok {
			v.unregister()
			delete(m.data, id)
			m.vehicles.Remove(v)
		}
	}
	m.removed = m.removed[:0]
	m.mtx.Unlock()

	m.vehicles.Prepare()
	parallel.GoFor(m.vehicles.Data(), func(v *Vehicle) { v.prepare() })
	activeVehicles.Set(float64(m.vehicles.Len()))
}

// Update 更新阶段
func (m *Manager) Update(dt float64) {
	parallel.GoFor(m.vehicles.Data(), func(v *Vehicle) { v.update(dt) })
}

// Release 从切片节点注销全部车辆并清空
func (m *Manager) Release() {
	for _, v := range m.data {
		v.unregister()
	}
	m.data = make(map[int32]*Vehicle)
	m.vehicles = container.NewIncrementalArray[*Vehicle]()
	m.inserted, m.removed = nil, nil
	activeVehicles.Set(0)
}

// drivable 车道可解析且为行车道
func (m *Manager) drivable(uid entity.LaneUID) bool {
	l, ok := m.ctx.MapCache().Lane(uid)
	return ok && isDriving(l)
}

// randomLane 随机选择一条可投放的车道
func (m *Manager) randomLane(rng *randengine.Engine) (entity.LaneUID, bool) {
	i := rng.Choice(len(m.spawnLanes))
	if i < 0 {
		return entity.LaneUID{}, false
	}
	return m.spawnLanes[i], true
}
