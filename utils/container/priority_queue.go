package container

import "container/heap"

type item[T any] struct {
	value    T
	priority float64
}

// minHeap 实现heap.Interface，优先级数值越小越靠前
type minHeap[T any] []item[T]

func (h minHeap[T]) Len() int           { return len(h) }
func (h minHeap[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h minHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(item[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = item[T]{}
	*h = old[:n-1]
	return it
}

// PriorityQueue 最小优先队列
// 功能：按距离扩展的图搜索（如区间收集）使用，优先级相同的元素出队顺序不保证
type PriorityQueue[T any] struct {
	h minHeap[T]
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{h: make(minHeap[T], 0)}
}

// Len 队列长度
func (q *PriorityQueue[T]) Len() int {
	return q.h.Len()
}

// Push 加入元素
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	heap.Push(&q.h, item[T]{value: value, priority: priority})
}

// Pop 弹出优先级数值最小的元素
// 说明：队列为空时panic
func (q *PriorityQueue[T]) Pop() (value T, priority float64) {
	it := heap.Pop(&q.h).(item[T])
	return it.value, it.priority
}
