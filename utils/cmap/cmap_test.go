package cmap_test

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/cmap"
)

func TestGetOrInsertWithOnce(t *testing.T) {
	m := cmap.New[int, []int]()
	var calls atomic.Int32
	const n = 64
	results := make([][]int, n)
	inserted := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], inserted[i] = m.GetOrInsertWith(1, func() []int {
				calls.Add(1)
				return []int{1, 2, 3}
			})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
	winners := 0
	for i := 0; i < n; i++ {
		assert.Equal(t, []int{1, 2, 3}, results[i])
		// 所有调用者拿到同一个底层数组
		assert.Same(t, &results[0][0], &results[i][0])
		if inserted[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMapOperations(t *testing.T) {
	m := cmap.New[string, int]()
	_, ok := m.Get("a")
	assert.False(t, ok)
	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, stored := m.SetIfAbsent("a", 2)
	assert.False(t, stored)
	assert.Equal(t, 1, v)

	assert.Equal(t, 3, m.Update("a", func(old int, ok bool) int { return old + 2 }))
	assert.Equal(t, 7, m.Update("b", func(old int, ok bool) int {
		assert.False(t, ok)
		return 7
	}))
	keys := m.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 2, m.Len())

	m.Delete("a")
	assert.Equal(t, 1, m.Len())
	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestSet(t *testing.T) {
	s := cmap.NewSet[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(i % 10)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len())
	assert.True(t, s.Has(3))
	assert.False(t, s.Add(3))
	s.Remove(3)
	assert.False(t, s.Has(3))
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
