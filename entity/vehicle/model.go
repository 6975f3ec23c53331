package vehicle

import (
	"math"

	"github.com/samber/lo"
)

// 跟车模型参数
const (
	maxA          = 2.0  // 最大加速度
	usualBrakingA = -4.5 // 常用制动加速度
	maxBrakingA   = -10. // 最大制动加速度
	minGap        = 2.0  // 最小车距
	headway       = 1.5  // 安全车头时距
	idmTheta      = 4.0
)

// follow 智能驾驶模型(IDM)跟车
// 参数：selfV-本车速度，targetV-目标速度，aheadV-前车速度，distance-车距
// 返回：加速度（米/秒²）
// 算法说明：
// 1. 车距不大于0视为已碰撞，紧急制动
// 2. 期望车距s_star = minGap + max(0, v*headway + v*(v-v_ahead)/(2*sqrt(a*b)))
// 3. a = maxA * (1 - (v/targetV)^4 - (s_star/distance)^2)，限制在制动与加速范围内
func follow(selfV, targetV, aheadV, distance float64) float64 {
	if distance <= 0 {
		return maxBrakingA
	}
	if targetV <= 0 {
		return maxBrakingA
	}
	sStar := minGap + math.Max(
		0,
		selfV*headway+selfV*(selfV-aheadV)/2/math.Sqrt(-usualBrakingA*maxA),
	)
	acc := maxA * (1 - math.Pow(selfV/targetV, idmTheta) - math.Pow(sStar/distance, 2))
	return lo.Clamp(acc, maxBrakingA, maxA)
}
