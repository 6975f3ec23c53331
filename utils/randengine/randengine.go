// 随机数引擎，包装了golang.org/x/exp/rand
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量
)

// Engine 随机数引擎
// 说明：非线程安全，每辆车独占一个引擎
type Engine struct {
	*rand.Rand
}

// New 创建随机数引擎，实际种子为seed加上种子偏移量
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以概率p返回true
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// Choice 均匀选取下标，n<=0时返回-1
func (e *Engine) Choice(n int) int {
	if n <= 0 {
		return -1
	}
	return e.Intn(n)
}
