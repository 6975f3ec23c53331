package hashed

import (
	"sync"

	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

var _ entity.ISegmentNode = (*Node)(nil)

// registry 单个类别的登记表，由节点自己的锁保护
type registry struct {
	mtx sync.RWMutex
	m   map[int32]entity.Occupant
}

// Node 路段切片节点
// 功能：切片的前后左右邻接关系与登记表
// 说明：邻接关系在Build中确定后只读；登记表可被任意协程并发读写，锁只在单个登记表的读写期间持有
type Node struct {
	info entity.HashedLaneInfo

	front []*Node
	back  []*Node
	left  *Node
	right *Node

	registries [entity.KindCount]registry
}

func newNode(info entity.HashedLaneInfo) *Node {
	return &Node{info: info}
}

func (n *Node) String() string {
	return n.info.String()
}

// Info 切片信息
func (n *Node) Info() entity.HashedLaneInfo {
	return n.info
}

// Front 前方相邻节点
func (n *Node) Front() []*Node {
	return n.front
}

// Back 后方相邻节点
func (n *Node) Back() []*Node {
	return n.back
}

// Left 左侧同向节点，不存在时为nil
func (n *Node) Left() *Node {
	return n.left
}

// Right 右侧同向节点，不存在时为nil
func (n *Node) Right() *Node {
	return n.right
}

// Register 登记参与者
// 参数：kind-类别，e-参与者，s-在节点内的偏移量
// 说明：同一ID重复登记时覆盖旧的偏移量
func (n *Node) Register(kind entity.AgentKind, e entity.IElement, s float64) {
	r := &n.registries[kind]
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.m == nil {
		r.m = make(map[int32]entity.Occupant)
	}
	if _, ok := r.m[e.ID()]; !ok {
		registered.WithLabelValues(kind.String()).Inc()
	}
	r.m[e.ID()] = entity.Occupant{Element: e, S: s}
}

// Unregister 注销参与者，不存在时不做任何事
func (n *Node) Unregister(kind entity.AgentKind, id int32) {
	r := &n.registries[kind]
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.m[id]; ok {
		delete(r.m, id)
		registered.WithLabelValues(kind.String()).Dec()
	}
}

// Snapshot 登记表的快照
func (n *Node) Snapshot(kind entity.AgentKind) []entity.Occupant {
	r := &n.registries[kind]
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	res := make([]entity.Occupant, 0, len(r.m))
	for _, o := range r.m {
		res = append(res, o)
	}
	return res
}

// Count 登记的参与者数量
func (n *Node) Count(kind entity.AgentKind) int {
	r := &n.registries[kind]
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.m)
}

// clear 清空全部登记表
func (n *Node) clear() {
	for kind := range n.registries {
		r := &n.registries[kind]
		r.mtx.Lock()
		registered.WithLabelValues(entity.AgentKind(kind).String()).Sub(float64(len(r.m)))
		r.m = nil
		r.mtx.Unlock()
	}
}
