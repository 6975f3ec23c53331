package container

// Queue 先进先出队列
// 功能：广度优先搜索使用的队列，出队后释放头部引用
type Queue[T any] struct {
	data []T
	head int
}

// NewQueue 创建队列，items为初始元素
func NewQueue[T any](items ...T) *Queue[T] {
	return &Queue[T]{data: append([]T(nil), items...)}
}

// Len 队列长度
func (q *Queue[T]) Len() int {
	return len(q.data) - q.head
}

// Push 入队
func (q *Queue[T]) Push(v T) {
	q.data = append(q.data, v)
}

// Pop 出队，队列为空时返回零值与false
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	v := q.data[q.head]
	q.data[q.head] = zero
	q.head++
	if q.head == len(q.data) {
		q.data, q.head = q.data[:0], 0
	}
	return v, true
}
