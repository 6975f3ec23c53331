// Package hashed 路段切片索引与邻车搜索
// 功能：把车道/连接线切分为有限长度的节点，建立前后左右邻接关系，供交通参与者登记位置并查询前后车
package hashed

import (
	"time"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

var _ entity.IHashedIndex = (*Index)(nil)

// Index 路段切片索引
// 说明：节点与邻接关系在Build中一次性建立，此后除Relink外只有节点的登记表会被修改
type Index struct {
	seg   float64
	refs  []entity.LocationRef
	nodes map[entity.LocationRef][]*Node
}

// Build 由地图缓存构建切片索引
// 参数：cache-已加载的地图缓存，seg-切片长度（米）
// 算法说明：
// 1. 并行切分全部车道与未被过滤的连接线
// 2. 并行建立每个节点的前后邻接：同一车道/连接线内相邻的桶互为前后；
// 车道/连接线的末桶连接到下游的首桶，首桶连接到上游的末桶
// 3. 车道节点的左右邻接取相邻车道的同序号桶，相邻车道较短时取其末桶
func Build(cache entity.IMapCache, seg float64) *Index {
	start := time.Now()
	idx := &Index{seg: seg}
	idx.refs = append(
		lo.Map(cache.Lanes(), func(uid entity.LaneUID, _ int) entity.LocationRef { return entity.OnLane(uid) }),
		lo.Map(cache.Links(), func(uid entity.LinkUID, _ int) entity.LocationRef { return entity.OnLink(uid) })...,
	)
	buckets := parallel.GoMap(idx.refs, func(ref entity.LocationRef) []*Node {
		length := cache.LengthOf(ref)
		count := BucketCount(length, seg)
		nodes := make([]*Node, count)
		for i := range nodes {
			nodes[i] = newNode(NewInfo(ref, int32(i), length, seg))
		}
		return nodes
	})
	idx.nodes = make(map[entity.LocationRef][]*Node, len(idx.refs))
	total := 0
	for i, ref := range idx.refs {
		idx.nodes[ref] = buckets[i]
		total += len(buckets[i])
	}

	parallel.GoFor(idx.refs, func(ref entity.LocationRef) {
		nodes := idx.nodes[ref]
		if len(nodes) == 0 {
			return
		}
		for i := 1; i < len(nodes); i++ {
			nodes[i-1].front = append(nodes[i-1].front, nodes[i])
			nodes[i].back = append(nodes[i].back, nodes[i-1])
		}
		first, last := nodes[0], nodes[len(nodes)-1]
		if ref.IsOnLane() {
			uid := ref.Lane()
			last.front = idx.laneFront(cache, uid)
			first.back = idx.laneBack(cache, uid)
			for i, n := range nodes {
				n.left = idx.sideNode(cache, uid, entity.LEFT, i)
				n.right = idx.sideNode(cache, uid, entity.RIGHT, i)
			}
		} else {
			link := ref.Link()
			last.front = idx.firstOf(cache.ToLaneSetOf(link))
			first.back = idx.lastOf(cache.FromLaneSetOf(link))
		}
	})

	nodeCount.Set(float64(total))
	log.Infof("hashed index built in %v: %d lanes/links -> %d nodes (segment %.1fm)",
		time.Since(start), len(idx.refs), total, seg)
	return idx
}

// Relink 连接线被过滤后重建其两端车道的邻接
// 参数：cache-已将link加入黑名单的地图缓存，link-被过滤的连接线
// 算法说明：
// 1. 重算起点车道末桶的前方节点
// 2. 重算终点车道首桶的后方节点，以及起点车道其余出连接线终点车道首桶的后方节点（分流判断随出连接线数量变化）
// 说明：连接线自身的节点保留，已在连接线上的交通参与者仍可驶出；不能与节点登记并发调用
func (idx *Index) Relink(cache entity.IMapCache, link entity.LinkUID) {
	for _, from := range cache.FromLaneSetOf(link) {
		if nodes := idx.nodes[entity.OnLane(from)]; len(nodes) > 0 {
			nodes[len(nodes)-1].front = idx.laneFront(cache, from)
		}
	}
	to := append([]entity.LaneUID(nil), cache.ToLaneSetOf(link)...)
	for _, from := range cache.FromLaneSetOf(link) {
		for _, other := range cache.NextLinksFrom(from) {
			to = append(to, cache.ToLaneSetOf(other)...)
		}
	}
	for _, uid := range lo.Uniq(to) {
		if nodes := idx.nodes[entity.OnLane(uid)]; len(nodes) > 0 {
			nodes[0].back = idx.laneBack(cache, uid)
		}
	}
	log.Infof("hashed index: relink around %v", link)
}

// laneFront 车道末桶的前方节点：后继车道的首桶与出连接线的首桶（零长度连接线取其终点车道首桶）
func (idx *Index) laneFront(cache entity.IMapCache, uid entity.LaneUID) []*Node {
	res := idx.firstOf(cache.NextLanesOf(uid))
	for _, link := range cache.NextLinksFrom(uid) {
		if nodes := idx.nodes[entity.OnLink(link)]; len(nodes) > 0 {
			res = append(res, nodes[0])
		} else {
			res = append(res, idx.firstOf(cache.ToLaneSetOf(link))...)
		}
	}
	return lo.Uniq(res)
}

// laneBack 车道首桶的后方节点：前驱车道的末桶与入连接线的末桶
// 说明：起点车道有多条出连接线的入连接线不作为后方节点，后车搜索不会跨入分流路口的其他方向
func (idx *Index) laneBack(cache entity.IMapCache, uid entity.LaneUID) []*Node {
	res := idx.lastOf(cache.PrevLanesOf(uid))
	for _, link := range cache.PrevLinksTo(uid) {
		if len(cache.NextLinksFrom(link.From)) > 1 {
			continue
		}
		if nodes := idx.nodes[entity.OnLink(link)]; len(nodes) > 0 {
			res = append(res, nodes[len(nodes)-1])
		} else {
			res = append(res, idx.lastOf(cache.FromLaneSetOf(link))...)
		}
	}
	return lo.Uniq(res)
}

func (idx *Index) sideNode(cache entity.IMapCache, uid entity.LaneUID, side int, i int) *Node {
	other, ok := cache.NeighborLane(uid, side)
	if !ok {
		return nil
	}
	nodes := idx.nodes[entity.OnLane(other)]
	if len(nodes) == 0 {
		return nil
	}
	return nodes[min(i, len(nodes)-1)]
}

func (idx *Index) firstOf(uids []entity.LaneUID) []*Node {
	res := make([]*Node, 0, len(uids))
	for _, uid := range uids {
		if nodes := idx.nodes[entity.OnLane(uid)]; len(nodes) > 0 {
			res = append(res, nodes[0])
		}
	}
	return res
}

func (idx *Index) lastOf(uids []entity.LaneUID) []*Node {
	res := make([]*Node, 0, len(uids))
	for _, uid := range uids {
		if nodes := idx.nodes[entity.OnLane(uid)]; len(nodes) > 0 {
			res = append(res, nodes[len(nodes)-1])
		}
	}
	return res
}

// SegmentLength 切片长度
func (idx *Index) SegmentLength() float64 {
	return idx.seg
}

// Nodes 车道/连接线的全部节点，按序号排序
func (idx *Index) Nodes(ref entity.LocationRef) []*Node {
	return idx.nodes[ref]
}

// Node 车道/连接线的第i个节点
func (idx *Index) Node(ref entity.LocationRef, i int32) (*Node, bool) {
	nodes := idx.nodes[ref]
	if i < 0 || int(i) >= len(nodes) {
		return nil, false
	}
	return nodes[i], true
}

// Locate 位置所在的节点
// 说明：s超出范围时取首/末节点；车道/连接线不在索引中或长度为0时ok为false
func (idx *Index) Locate(ref entity.LocationRef, s float64) (entity.ISegmentNode, bool) {
	n, ok := idx.locate(ref, s)
	if !ok {
		return nil, false
	}
	return n, true
}

func (idx *Index) locate(ref entity.LocationRef, s float64) (*Node, bool) {
	nodes := idx.nodes[ref]
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[bucketIndex(s, idx.seg, int32(len(nodes)))], true
}

// Stats 索引统计
type Stats struct {
	Refs       int
	Nodes      int
	Registered [entity.KindCount]int
}

// Stats 统计节点数与各类别登记数量
func (idx *Index) Stats() Stats {
	s := Stats{Refs: len(idx.refs)}
	for _, nodes := range idx.nodes {
		s.Nodes += len(nodes)
		for _, n := range nodes {
			for kind := entity.AgentKind(0); kind < entity.KindCount; kind++ {
				s.Registered[kind] += n.Count(kind)
			}
		}
	}
	return s
}

// ClearDynamic 清空全部节点的登记表，保留节点与邻接关系
func (idx *Index) ClearDynamic() {
	parallel.GoFor(idx.refs, func(ref entity.LocationRef) {
		for _, n := range idx.nodes[ref] {
			n.clear()
		}
	})
}

// Release 清空索引
func (idx *Index) Release() {
	idx.ClearDynamic()
	idx.refs = nil
	idx.nodes = make(map[entity.LocationRef][]*Node)
	nodeCount.Set(0)
}
