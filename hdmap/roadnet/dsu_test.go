package roadnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

// naiveLabels 以标签传播计算连通分量，作为并查集的对照
func naiveLabels(n int, edges [][2]int32) []int32 {
	label := make([]int32, n)
	for i := range label {
		label[i] = int32(i)
	}
	for changed := true; changed; {
		changed = false
		for _, e := range edges {
			a, b := label[e[0]], label[e[1]]
			if a == b {
				continue
			}
			lo := min(a, b)
			for i := range label {
				if label[i] == a || label[i] == b {
					label[i] = lo
				}
			}
			changed = true
		}
	}
	return label
}

func TestDisjointSetEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 1 + r.Intn(12)
		edges := make([][2]int32, r.Intn(2*n))
		for i := range edges {
			edges[i] = [2]int32{int32(r.Intn(n)), int32(r.Intn(n))}
		}
		d := newDisjointSet(n)
		for _, e := range edges {
			d.union(e[0], e[1])
		}
		want := naiveLabels(n, edges)
		for a := int32(0); a < int32(n); a++ {
			for b := int32(0); b < int32(n); b++ {
				assert.Equal(t, want[a] == want[b], d.find(a) == d.find(b), "round %d: %d~%d", round, a, b)
			}
		}
	}
}

func TestDisjointSetUnion(t *testing.T) {
	d := newDisjointSet(4)
	assert.True(t, d.union(0, 1))
	assert.False(t, d.union(1, 0))
	assert.True(t, d.union(2, 3))
	assert.NotEqual(t, d.find(0), d.find(3))
	assert.True(t, d.union(1, 3))
	root := d.find(0)
	for i := int32(1); i < 4; i++ {
		assert.Equal(t, root, d.find(i))
	}
}
