// Package roadnet 路网拓扑合并
// 功能：把首尾相接的车道/连接线端点合并为路由顶点
package roadnet

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

var _ entity.IRoadNetwork = (*Network)(nil)

// Network 路由顶点集合
// 说明：Build后只读
type Network struct {
	leaves    []entity.JointPointID
	leafIndex map[entity.JointPointID]int32
	vertexOf  []int32 // 叶子下标->顶点ID
	vertices  []entity.RoutingVertex

	inconsistent int
}

// Build 合并端点构建路由顶点
// 参数：cache-已加载的地图缓存，tolerance-顶点成员间允许的最大距离（米）
// 算法说明：
// 1. 每条车道与未被过滤的连接线的起点、终点各为一个叶子
// 2. 连接线起点与起点车道集合的终点合并，连接线终点与终点车道集合的起点合并
// 3. 车道起点与前驱车道的终点合并，车道终点与后继车道的起点合并
// 4. 按叶子顺序为每个集合分配顶点ID，顶点位置取第一个成员的位置
// 5. 成员与顶点位置距离超过tolerance的顶点记录警告并计数
func Build(cache entity.IMapCache, tolerance float64) *Network {
	start := time.Now()
	n := &Network{leafIndex: make(map[entity.JointPointID]int32)}
	addLeaves := func(ref entity.LocationRef) {
		for _, isStart := range []bool{true, false} {
			jp := entity.JointPointID{Ref: ref, IsStart: isStart}
			n.leafIndex[jp] = int32(len(n.leaves))
			n.leaves = append(n.leaves, jp)
		}
	}
	lanes, links := cache.Lanes(), cache.Links()
	for _, uid := range lanes {
		addLeaves(entity.OnLane(uid))
	}
	for _, uid := range links {
		addLeaves(entity.OnLink(uid))
	}
	positions := parallel.GoMap(n.leaves, func(jp entity.JointPointID) geometry.Point {
		if jp.IsStart {
			return cache.StartOf(jp.Ref)
		}
		return cache.EndOf(jp.Ref)
	})

	dsu := newDisjointSet(len(n.leaves))
	merge := func(a, b entity.JointPointID) {
		ia, ok1 := n.leafIndex[a]
		ib, ok2 := n.leafIndex[b]
		if ok1 && ok2 {
			dsu.union(ia, ib)
		}
	}
	endOfLane := func(uid entity.LaneUID) entity.JointPointID {
		return entity.JointPointID{Ref: entity.OnLane(uid), IsStart: false}
	}
	startOfLane := func(uid entity.LaneUID) entity.JointPointID {
		return entity.JointPointID{Ref: entity.OnLane(uid), IsStart: true}
	}
	for _, uid := range links {
		ref := entity.OnLink(uid)
		for _, from := range cache.FromLaneSetOf(uid) {
			merge(entity.JointPointID{Ref: ref, IsStart: true}, endOfLane(from))
		}
		for _, to := range cache.ToLaneSetOf(uid) {
			merge(entity.JointPointID{Ref: ref, IsStart: false}, startOfLane(to))
		}
	}
	for _, uid := range lanes {
		for _, prev := range cache.PrevLanesOf(uid) {
			merge(startOfLane(uid), endOfLane(prev))
		}
		for _, next := range cache.NextLanesOf(uid) {
			merge(endOfLane(uid), startOfLane(next))
		}
	}

	rootToVertex := make(map[int32]int32)
	bad := make(map[int32]struct{})
	n.vertexOf = make([]int32, len(n.leaves))
	for i, jp := range n.leaves {
		root := dsu.find(int32(i))
		id, ok := rootToVertex[root]
		if !ok {
			id = int32(len(n.vertices))
			rootToVertex[root] = id
			n.vertices = append(n.vertices, entity.RoutingVertex{ID: id, Position: positions[i]})
		}
		n.vertexOf[i] = id
		v := &n.vertices[id]
		v.Members = append(v.Members, jp)
		if d := math.Hypot(positions[i].X-v.Position.X, positions[i].Y-v.Position.Y); d > tolerance {
			log.Warnf("vertex %d: %v is %.2fm away from %v", id, jp, d, v.Members[0])
			bad[id] = struct{}{}
		}
	}
	n.inconsistent = len(bad)

	jointPoints.Set(float64(len(n.leaves)))
	vertices.Set(float64(len(n.vertices)))
	inconsistentVertices.Set(float64(n.inconsistent))
	log.Infof("road network built in %v: %d joint points -> %d vertices (%d inconsistent)",
		time.Since(start), len(n.leaves), len(n.vertices), n.inconsistent)
	return n
}

// Vertices 全部路由顶点，按ID排序
func (n *Network) Vertices() []entity.RoutingVertex {
	return n.vertices
}

// VertexOf 端点所属的顶点ID
func (n *Network) VertexOf(jp entity.JointPointID) (int32, bool) {
	i, ok := n.leafIndex[jp]
	if !ok {
		return 0, false
	}
	return n.vertexOf[i], true
}

// Same 两个端点是否属于同一个顶点
func (n *Network) Same(a, b entity.JointPointID) bool {
	va, ok1 := n.VertexOf(a)
	vb, ok2 := n.VertexOf(b)
	return ok1 && ok2 && va == vb
}

// Inconsistent 成员位置不一致的顶点数量
func (n *Network) Inconsistent() int {
	return n.inconsistent
}

// Err 存在成员位置不一致的顶点时返回ErrInconsistentTopology
func (n *Network) Err() error {
	if n.inconsistent == 0 {
		return nil
	}
	return fmt.Errorf("%d vertices exceed tolerance: %w", n.inconsistent, entity.ErrInconsistentTopology)
}

// Dump 以CSV格式输出全部顶点：vertex_id,x,y,members
func (n *Network) Dump(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"vertex_id", "x", "y", "members"}); err != nil {
		return err
	}
	for _, v := range n.vertices {
		members := lo.Map(v.Members, func(jp entity.JointPointID, _ int) string { return jp.String() })
		if err := writer.Write([]string{
			strconv.Itoa(int(v.ID)),
			strconv.FormatFloat(v.Position.X, 'f', 3, 64),
			strconv.FormatFloat(v.Position.Y, 'f', 3, 64),
			strings.Join(members, ";"),
		}); err != nil {
			return fmt.Errorf("dump vertex %d: %w", v.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Release 清空
func (n *Network) Release() {
	n.leaves = nil
	n.leafIndex = make(map[entity.JointPointID]int32)
	n.vertexOf = nil
	n.vertices = nil
	n.inconsistent = 0
	jointPoints.Set(0)
	vertices.Set(0)
	inconsistentVertices.Set(0)
}
