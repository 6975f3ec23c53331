package hashed

import (
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/container"
)

type direction int

const (
	dirFront direction = iota
	dirRear
)

func (d direction) String() string {
	if d == dirFront {
		return "front"
	}
	return "rear"
}

// searchCmd 搜索中的一步
type searchCmd struct {
	node      *Node
	originalS float64 // 比较基准在节点内的偏移
	length    float64 // 本节点内可通行的长度
	valid     float64 // 进入本节点时剩余的有效搜索距离
}

// SearchNearestFront 搜索前方最近的车辆
// 参数：selfID/selfLength-自身ID与长度，origin-自身所在节点，sInNode-自身在节点内的偏移，distance-搜索距离
// 返回：最近车辆与车头到车尾的间距，未找到时Element为nil
func (idx *Index) SearchNearestFront(
	selfID int32, selfLength float64, origin entity.ISegmentNode, sInNode float64, distance float64,
) entity.SurroundResult {
	return idx.search(dirFront, selfID, selfLength, origin, sInNode, distance)
}

// SearchNearestRear 搜索后方最近的车辆
func (idx *Index) SearchNearestRear(
	selfID int32, selfLength float64, origin entity.ISegmentNode, sInNode float64, distance float64,
) entity.SurroundResult {
	return idx.search(dirRear, selfID, selfLength, origin, sInNode, distance)
}

// search 按层广度优先搜索
// 算法说明：
// 1. 起始命令：前向搜索本节点可通行长度为节点末端到自身的距离，后向为节点起点到自身的距离
// 2. 逐层扫描每个命令对应节点的车辆登记表，偏移差ds满足0<=ds<剩余有效距离的车辆为候选，
// 间距=搜索距离-(剩余有效距离-ds)-(两车长度之和)/2，取本层最小者
// 3. 本层有候选即结束；否则剩余有效距离减去本节点可通行长度后仍大于0时，
// 沿前方（后方）邻接生成下一层命令
// 4. 前沿为空时返回未找到
func (idx *Index) search(
	dir direction, selfID int32, selfLength float64, origin entity.ISegmentNode, sInNode float64, distance float64,
) entity.SurroundResult {
	node, _ := origin.(*Node)
	if node == nil {
		log.Debugf("%v search of %d: origin node unavailable", dir, selfID)
		searchTotal.WithLabelValues(dir.String(), "no_origin").Inc()
		return entity.SurroundResult{Distance: mathutil.INF}
	}
	first := searchCmd{node: node, originalS: sInNode, valid: distance}
	if dir == dirFront {
		first.length = node.info.RealLength() - sInNode
	} else {
		first.length = sInNode
	}
	frontier := []searchCmd{first}
	levels := 0
	for len(frontier) > 0 {
		levels++
		best := entity.SurroundResult{Distance: mathutil.INF}
		var next []searchCmd
		for _, cmd := range frontier {
			for _, o := range cmd.node.Snapshot(entity.KindVehicle) {
				if o.Element.ID() == selfID {
					continue
				}
				ds := o.S - cmd.originalS
				if dir == dirRear {
					ds = -ds
				}
				if ds < 0 || ds >= cmd.valid {
					continue
				}
				gap := distance - (cmd.valid - ds) - (selfLength+o.Element.Length())/2
				if gap < best.Distance {
					best = entity.SurroundResult{Distance: gap, Element: o.Element}
				}
			}
			remain := cmd.valid - cmd.length
			if remain <= 0 {
				continue
			}
			adj := cmd.node.front
			if dir == dirRear {
				adj = cmd.node.back
			}
			for _, n := range adj {
				c := searchCmd{node: n, length: n.info.RealLength(), valid: remain}
				if dir == dirRear {
					c.originalS = n.info.RealLength()
				}
				next = append(next, c)
			}
		}
		if best.Found() {
			searchTotal.WithLabelValues(dir.String(), "found").Inc()
			searchLevels.WithLabelValues(dir.String()).Observe(float64(levels))
			return best
		}
		frontier = next
	}
	searchTotal.WithLabelValues(dir.String(), "not_found").Inc()
	searchLevels.WithLabelValues(dir.String()).Observe(float64(levels))
	return entity.SurroundResult{Distance: mathutil.INF}
}

// Reach 区间收集的结果
type Reach struct {
	Node     *Node
	Distance float64 // 从起点到节点入口（前向为节点起点，后向为节点终点）的最短距离，起始节点为0
}

// CollectFront 收集前方distance以内可到达的全部节点
// 算法说明：以到达节点入口的距离为优先级做最短路扩展，每个节点只保留最短距离，按距离升序返回
func (idx *Index) CollectFront(origin entity.ISegmentNode, sInNode float64, distance float64) []Reach {
	return idx.collect(dirFront, origin, sInNode, distance)
}

// CollectBack 收集后方distance以内可到达的全部节点
func (idx *Index) CollectBack(origin entity.ISegmentNode, sInNode float64, distance float64) []Reach {
	return idx.collect(dirRear, origin, sInNode, distance)
}

func (idx *Index) collect(dir direction, origin entity.ISegmentNode, sInNode float64, distance float64) []Reach {
	node, _ := origin.(*Node)
	if node == nil || distance <= 0 {
		return nil
	}
	// 起始节点的出口距离
	exit := node.info.RealLength() - sInNode
	if dir == dirRear {
		exit = sInNode
	}
	res := []Reach{{Node: node}}
	visited := map[*Node]struct{}{node: {}}
	q := container.NewPriorityQueue[*Node]()
	push := func(from *Node, d float64) {
		if d >= distance {
			return
		}
		adj := from.front
		if dir == dirRear {
			adj = from.back
		}
		for _, n := range adj {
			if _, ok := visited[n]; !ok {
				q.Push(n, d)
			}
		}
	}
	push(node, exit)
	for q.Len() > 0 {
		n, d := q.Pop()
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		res = append(res, Reach{Node: n, Distance: d})
		push(n, d+n.info.RealLength())
	}
	return res
}
