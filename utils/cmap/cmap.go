// 并发映射表，包装了github.com/puzpuzpuz/xsync/v3，提供插入一次（insert-once）语义的get-or-insert接口
package cmap

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Map 并发映射表
// 功能：支持无锁并发读与按键加锁的首次写入
// 说明：GetOrInsertWith保证同一个键的计算函数最多执行一次，并发未命中的调用者得到同一个值
type Map[K comparable, V any] struct {
	m *xsync.MapOf[K, V]
}

// New 创建并发映射表
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: xsync.NewMapOf[K, V]()}
}

// Get 查询键对应的值
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.m.Load(key)
}

// GetOrInsertWith 查询键对应的值，不存在时调用compute计算并发布
// 功能：插入一次语义的缓存接口
// 参数：key-键，compute-值的计算函数（纯函数）
// 返回：键对应的值，以及该值是否为本次调用计算得到
// 说明：compute在键所在桶的锁内执行，不得再访问同一个Map
func (m *Map[K, V]) GetOrInsertWith(key K, compute func() V) (V, bool) {
	v, loaded := m.m.LoadOrCompute(key, compute)
	return v, !loaded
}

// Set 写入键值
func (m *Map[K, V]) Set(key K, value V) {
	m.m.Store(key, value)
}

// SetIfAbsent 仅在键不存在时写入，返回最终的值与是否写入成功
func (m *Map[K, V]) SetIfAbsent(key K, value V) (V, bool) {
	v, loaded := m.m.LoadOrStore(key, value)
	return v, !loaded
}

// Update 原子地修改键对应的值
// 参数：fn-输入旧值与是否存在，返回新值
func (m *Map[K, V]) Update(key K, fn func(old V, ok bool) V) V {
	v, _ := m.m.Compute(key, func(old V, loaded bool) (V, bool) {
		return fn(old, loaded), false
	})
	return v
}

// Delete 删除键
func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Range 遍历全部键值，fn返回false时停止
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.m.Range(fn)
}

// Keys 全部键（无序）
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.m.Size())
	m.m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len 键值数量
func (m *Map[K, V]) Len() int {
	return m.m.Size()
}

// Clear 清空
func (m *Map[K, V]) Clear() {
	m.m.Clear()
}

// Set 并发集合
type Set[K comparable] struct {
	m *xsync.MapOf[K, struct{}]
}

// NewSet 创建并发集合
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{m: xsync.NewMapOf[K, struct{}]()}
}

// Add 添加元素，返回元素此前是否不存在
func (s *Set[K]) Add(key K) bool {
	_, loaded := s.m.LoadOrStore(key, struct{}{})
	return !loaded
}

// Has 判断元素是否存在
func (s *Set[K]) Has(key K) bool {
	_, ok := s.m.Load(key)
	return ok
}

// Remove 删除元素
func (s *Set[K]) Remove(key K) {
	s.m.Delete(key)
}

// Keys 全部元素（无序）
func (s *Set[K]) Keys() []K {
	keys := make([]K, 0, s.m.Size())
	s.m.Range(func(k K, _ struct{}) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len 元素数量
func (s *Set[K]) Len() int {
	return s.m.Size()
}

// Clear 清空
func (s *Set[K]) Clear() {
	s.m.Clear()
}
