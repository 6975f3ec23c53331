package roadnet

// disjointSet 基于下标的并查集
// 说明：路径压缩+按秩合并，非并发安全
type disjointSet struct {
	parent []int32
	rank   []uint8
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int32, n), rank: make([]uint8, n)}
	for i := range d.parent {
		d.parent[i] = int32(i)
	}
	return d
}

// find 查找根节点并压缩路径
func (d *disjointSet) find(x int32) int32 {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for x != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

// union 合并两个集合，返回是否发生了合并
func (d *disjointSet) union(a, b int32) bool {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return false
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
	return true
}
