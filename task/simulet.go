package task

import (
	"flag"

	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

const (
	SelfName = "hdmap" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段：探测车更新快照并刷新切片节点登记
func (ctx *Context) prepare() {
	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		s := ctx.index.Stats()
		log.Infof(
			"STEP: %d(%v) vehicles registered: %d",
			ctx.clock.InternalStep, ctx.clock, s.Registered[entity.KindVehicle],
		)
	}
	ctx.vehicles.Prepare()
}

// update 更新阶段：探测车执行邻车搜索与移动
func (ctx *Context) update() {
	ctx.vehicles.Update(ctx.clock.DT)
}

// Step 离线推进一步
func (ctx *Context) Step() {
	ctx.prepare()
	ctx.update()
	ctx.clock.Next()
}

// RunOffline 不经过syncer运行到结束步
func (ctx *Context) RunOffline() {
	ctx.Init()
	for !ctx.clock.Done() {
		ctx.Step()
	}
	log.Infof("engine complete at %v", ctx.clock)
}

// Run 在syncer控制下运行
func (ctx *Context) Run() {
	ctx.Init()
	ctx.sidecar.Step(false)
	for {
		ctx.prepare()
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
		ctx.sidecar.NotifyStepReady()
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		ctx.clock.Next()
		close := ctx.sidecar.Step(ctx.clock.Done())
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
}
