// Package clock 探测车流的仿真时钟
package clock

import (
	"fmt"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

// Clock 仿真时钟
// 功能：维护当前仿真时间与步数，模拟区间为[START_STEP, END_STEP)
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数
}

// New 根据控制步配置创建时钟
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置为起始步
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
}

// Next 前进一步
func (c *Clock) Next() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Done 是否已到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.END_STEP
}

// String 格式化为HH:MM:SS
func (c *Clock) String() string {
	t := int(c.T)
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, t%3600/60, t%60)
}
