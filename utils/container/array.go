package container

import (
	"sync"
)

// IIncrementalItem 可放入增量数组的元素，元素自己记录在数组中的下标
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 可嵌入的下标实现
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：更新阶段可并发地登记增删，Prepare阶段统一生效
// 说明：删除采用与末尾元素交换的方式，元素顺序不保证
type IncrementalArray[T IIncrementalItem] struct {
	data   []T
	add    []T
	remove []T
	mtx    sync.Mutex
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{data: make([]T, 0)}
}

// Len 已生效的元素数量
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 已生效的元素，调用方不得修改
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 登记添加，Prepare时生效
func (a *IncrementalArray[T]) Add(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.add = append(a.add, value)
}

// Remove 登记删除，Prepare时生效
func (a *IncrementalArray[T]) Remove(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 执行登记的增删
// 算法说明：先追加新元素，再逐个把待删除元素与末尾元素交换后截断
func (a *IncrementalArray[T]) Prepare() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	for _, x := range a.add {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	for _, x := range a.remove {
		ind := x.Index()
		last := len(a.data) - 1
		if ind < 0 || ind > last {
			continue
		}
		a.data[ind] = a.data[last]
		a.data[ind].SetIndex(ind)
		var zero T
		a.data[last] = zero
		a.data = a.data[:last]
		x.SetIndex(-1)
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
