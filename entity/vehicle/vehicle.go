package vehicle

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/randengine"
)

// 单步内越过车道末端的最大次数，防止零长度环路
const maxHopsPerStep = 16

// Vehicle 探测车
// 功能：沿车道行驶，登记到所在切片节点，并在每步执行前后车搜索
type Vehicle struct {
	container.IncrementalItemBase

	ctx entity.ITaskContext
	m   *Manager

	id     int32
	length float64
	maxV   float64

	rng *randengine.Engine

	snapshot, runtime runtime

	node entity.ISegmentNode // 当前登记所在的节点
}

func newVehicle(ctx entity.ITaskContext, m *Manager, id int32, ref entity.LocationRef, s float64, seed uint64) *Vehicle {
	probe := ctx.RuntimeConfig().Probe
	v := &Vehicle{
		ctx:    ctx,
		m:      m,
		id:     id,
		length: probe.Length,
		maxV:   probe.Speed,
		rng:    randengine.New(seed),
	}
	v.runtime.Ref = ref
	v.runtime.S = s
	v.locate()
	v.snapshot = v.runtime
	return v
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle %d at %v s=%.2f", v.id, v.runtime.Ref, v.runtime.S)
}

// ID 车辆ID
func (v *Vehicle) ID() int32 {
	return v.id
}

// Length 车长
func (v *Vehicle) Length() float64 {
	return v.length
}

// Ref 所在车道或车道连接线
func (v *Vehicle) Ref() entity.LocationRef {
	return v.runtime.Ref
}

// S 在所在车道或车道连接线上的位置
func (v *Vehicle) S() float64 {
	return v.runtime.S
}

// V 速度
func (v *Vehicle) V() float64 {
	return v.runtime.V
}

// XYZ 坐标
func (v *Vehicle) XYZ() geometry.Point {
	return v.runtime.XYZ
}

// Front 最近一次前车搜索结果
func (v *Vehicle) Front() entity.SurroundResult {
	return v.runtime.Front
}

// Rear 最近一次后车搜索结果
func (v *Vehicle) Rear() entity.SurroundResult {
	return v.runtime.Rear
}

// Respawns 重新投放的次数
func (v *Vehicle) Respawns() int32 {
	return v.runtime.Respawns
}

// prepare 准备阶段：更新快照并刷新切片节点登记
// 说明：节点变化时先从旧节点注销，同一节点重复登记会覆盖偏移量
func (v *Vehicle) prepare() {
	v.snapshot = v.runtime
	if v.node != nil && v.node != v.runtime.Node {
		v.node.Unregister(entity.KindVehicle, v.id)
	}
	v.node = v.runtime.Node
	if v.node != nil {
		v.node.Register(entity.KindVehicle, v, v.runtime.sInNode())
	}
}

// unregister 从当前节点注销
func (v *Vehicle) unregister() {
	if v.node != nil {
		v.node.Unregister(entity.KindVehicle, v.id)
		v.node = nil
	}
}

// update 更新阶段
// 算法说明：
// 1. 基于快照所在节点执行前车与后车搜索
// 2. 以前车速度与间距计算IDM加速度，更新速度与位置
// 3. 越过末端时随机选择后继，驶入死路则重新投放
// 4. 按配置概率尝试向随机一侧变道
// 5. 重新定位坐标与切片节点
// 说明：只读取其他车辆的快照，可以并行执行
func (v *Vehicle) update(dt float64) {
	probe := v.ctx.RuntimeConfig().Probe
	idx := v.ctx.HashedIndex()
	ss := &v.snapshot
	rt := &v.runtime

	rt.Front = idx.SearchNearestFront(v.id, v.length, ss.Node, ss.sInNode(), probe.SearchDistance)
	rt.Rear = idx.SearchNearestRear(v.id, v.length, ss.Node, ss.sInNode(), probe.SearchDistance)

	aheadV, distance := 0., mathutil.INF
	if rt.Front.Found() {
		distance = rt.Front.Distance
		if o, ok := rt.Front.Element.(*Vehicle); ok {
			aheadV = o.snapshot.V
		}
	}
	acc := follow(ss.V, v.targetV(ss.Ref), aheadV, distance)
	rt.V = lo.Clamp(ss.V+acc*dt, 0, v.maxV)
	rt.S = ss.S + rt.V*dt
	rt.Ref = ss.Ref

	if !v.advance() {
		v.respawn()
	} else {
		v.tryLaneChange()
	}
	v.locate()
}

// targetV 目标速度：车辆最大速度与车道限速的较小值
func (v *Vehicle) targetV(ref entity.LocationRef) float64 {
	if ref.IsOnLane() {
		if l, ok := v.ctx.MapCache().Lane(ref.Lane()); ok && l.MaxV() > 0 {
			return min(v.maxV, l.MaxV())
		}
	}
	return v.maxV
}

// advance 越过末端时沿后继前进，返回false表示驶入死路
func (v *Vehicle) advance() bool {
	cache := v.ctx.MapCache()
	rt := &v.runtime
	for i := 0; i < maxHopsPerStep; i++ {
		length := cache.LengthOf(rt.Ref)
		if rt.S <= length {
			return true
		}
		next, ok := v.successor(rt.Ref)
		if !ok {
			return false
		}
		rt.S -= length
		rt.Ref = next
	}
	log.Warnf("%v: too many hops in one step", v)
	return false
}

// successor 随机选择后继
// 说明：候选为后继车道（非末路段时）与长度超过首尾相接阈值的车道连接线；
// 存在非死路候选时不选择死路车道
func (v *Vehicle) successor(ref entity.LocationRef) (entity.LocationRef, bool) {
	cache := v.ctx.MapCache()
	var candidates []entity.LocationRef
	if ref.IsOnLink() {
		for _, u := range cache.ToLaneSetOf(ref.Link()) {
			if v.m.drivable(u) {
				candidates = append(candidates, entity.OnLane(u))
			}
		}
	} else {
		uid := ref.Lane()
		for _, u := range cache.NextLanesOf(uid) {
			if v.m.drivable(u) {
				candidates = append(candidates, entity.OnLane(u))
			}
		}
		connect := v.ctx.RuntimeConfig().HDMap.ConnectLaneDist
		for _, l := range cache.NextLinksFrom(uid) {
			if r := entity.OnLink(l); cache.LengthOf(r) > connect {
				candidates = append(candidates, r)
			}
		}
	}
	alive := lo.Filter(candidates, func(r entity.LocationRef, _ int) bool {
		if r.IsOnLink() {
			return true
		}
		_, dead := cache.IsDeadEnd(r.Lane())
		return !dead
	})
	if len(alive) > 0 {
		candidates = alive
	}
	i := v.rng.Choice(len(candidates))
	if i < 0 {
		return entity.LocationRef{}, false
	}
	return candidates[i], true
}

// respawn 在随机车道的起点重新投放
func (v *Vehicle) respawn() {
	rt := &v.runtime
	uid, ok := v.m.randomLane(v.rng)
	if !ok {
		log.Warnf("%v: no lane to respawn on", v)
		rt.S = v.ctx.MapCache().LengthOf(rt.Ref)
		rt.V = 0
		return
	}
	rt.Ref = entity.OnLane(uid)
	rt.S = 0
	rt.V = 0
	rt.Respawns++
	respawnTotal.Inc()
}

// tryLaneChange 按概率尝试变道
// 说明：受禁止变道（本车道、目标车道、事件区间）约束，变道后按车道长度比例映射位置
func (v *Vehicle) tryLaneChange() {
	rt := &v.runtime
	prob := v.ctx.RuntimeConfig().Probe.LaneChangeProb
	if !rt.Ref.IsOnLane() || prob <= 0 || !v.rng.PTrue(prob) {
		return
	}
	cache := v.ctx.MapCache()
	side := v.rng.Choice(2)
	uid := rt.Ref.Lane()
	target, ok := cache.NeighborLane(uid, side)
	if !ok || !v.m.drivable(target) {
		laneChangeTotal.WithLabelValues("no_neighbor").Inc()
		return
	}
	if cache.RefuseLaneChange(uid, side) ||
		cache.IsDstRefuseLaneChange(uid, side) ||
		cache.IsSpecialRefuseLaneChange(uid, side, rt.S) {
		laneChangeTotal.WithLabelValues("refused").Inc()
		return
	}
	from, to := cache.LengthOf(rt.Ref), cache.LengthOf(entity.OnLane(target))
	if from > 0 {
		rt.S = lo.Clamp(rt.S/from*to, 0, to)
	}
	rt.Ref = entity.OnLane(target)
	laneChangeTotal.WithLabelValues("done").Inc()
}

// locate 重新计算坐标与所在切片节点
func (v *Vehicle) locate() {
	rt := &v.runtime
	rt.XYZ = v.ctx.MapCache().PositionAt(rt.Ref, rt.S)
	rt.Node = nil
	if node, ok := v.ctx.HashedIndex().Locate(rt.Ref, rt.S); ok {
		rt.Node = node
	}
}

func isDriving(l entity.ILane) bool {
	return l.Type() == mapv2.LaneType_LANE_TYPE_DRIVING
}
