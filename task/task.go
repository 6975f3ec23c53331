package task

import (
	"fmt"
	"io"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/clock"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/hashed"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/roadnet"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/mapsdk"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/input"
	"golang.org/x/sync/errgroup"
)

var _ entity.ITaskContext = (*Context)(nil)

// Context 仿真任务上下文
// 功能：持有一次任务的全部数据表，包括地图、地图缓存、路网顶点、切片索引与探测车
// 说明：Release后可以重新创建新的Context
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	clock *clock.Clock

	// 辅助程序，处理与syncer的交互，离线模式下为nil
	sidecar        *syncer.Sidecar
	sidecarCloseCh chan struct{}

	sdk      entity.IMapSDK
	cache    *hdmap.Cache
	network  *roadnet.Network
	index    *hashed.Index
	vehicles *vehicle.Manager

	runtimeConfig *config.RuntimeConfig
}

// NewContext 创建仿真任务上下文
// 参数：job-任务名，cacheDir-输入缓存目录，c-配置，sidecar-sidecar实例，startSidecarServe-是否启动sidecar服务
// 算法说明：
// 1. 加载地图，失败则panic
// 2. 构建地图缓存、路网顶点与切片索引
// 3. 注册时钟RPC并启动sidecar
func NewContext(
	job string,
	cacheDir string,
	c config.Config,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) *Context {
	pb, err := input.LoadMap(c.Input, cacheDir)
	if err != nil {
		log.Panicf("failed to load map: %v", err)
	}
	ctx, err := NewContextFromMap(c, mapsdk.FromPb(pb))
	if err != nil {
		log.Panicf("failed to build map cache: %v", err)
	}
	ctx.job = job
	ctx.sidecar = sidecar
	ctx.sidecarCloseCh = make(chan struct{})
	ctx.clock.Register(ctx.sidecar)

	if startSidecarServe {
		go func() {
			err := ctx.sidecar.Serve()
			if err != nil {
				log.Panicf("failed to serve: %v", err)
			}
			ctx.sidecarCloseCh <- struct{}{}
		}()
	}
	return ctx
}

// NewContextFromMap 基于已有地图创建离线上下文（不含sidecar）
// 返回：地图数据源不可用时返回ErrLoadConnection
// 说明：地图缓存加载完成后，路网顶点与切片索引并行构建
func NewContextFromMap(c config.Config, sdk entity.IMapSDK) (*Context, error) {
	ctx := &Context{
		job:           "offline",
		clock:         clock.New(c.Control.Step),
		sdk:           sdk,
		runtimeConfig: config.NewRuntimeConfig(c),
	}
	hc := ctx.runtimeConfig.HDMap
	ctx.cache = hdmap.New(sdk, hc)
	if err := ctx.cache.Load(); err != nil {
		return nil, err
	}
	ctx.cache.Check()

	var g errgroup.Group
	g.Go(func() error {
		ctx.network = roadnet.Build(ctx.cache, hc.JointPointTolerance)
		return ctx.network.Err()
	})
	g.Go(func() error {
		ctx.index = hashed.Build(ctx.cache, hc.SegmentLength())
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warnf("road network: %v", err)
	}
	ctx.vehicles = vehicle.NewManager(ctx)
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) MapSDK() entity.IMapSDK {
	return ctx.sdk
}

func (ctx *Context) MapCache() entity.IMapCache {
	return ctx.cache
}

// Cache 具体的地图缓存，用于过滤配置、事件禁止变道等写操作
func (ctx *Context) Cache() *hdmap.Cache {
	return ctx.cache
}

func (ctx *Context) RoadNetwork() entity.IRoadNetwork {
	return ctx.network
}

func (ctx *Context) HashedIndex() entity.IHashedIndex {
	return ctx.index
}

// Index 具体的切片索引，用于统计与区间收集
func (ctx *Context) Index() *hashed.Index {
	return ctx.index
}

func (ctx *Context) VehicleManager() entity.IVehicleManager {
	return ctx.vehicles
}

// Vehicles 探测车管理器
func (ctx *Context) Vehicles() *vehicle.Manager {
	return ctx.vehicles
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// DumpRoadNetwork 以CSV格式输出路网顶点
func (ctx *Context) DumpRoadNetwork(w io.Writer) error {
	if ctx.network == nil {
		return fmt.Errorf("road network of job %s is released", ctx.job)
	}
	return ctx.network.Dump(w)
}

// AddToBlacklist 运行中过滤连接线
// 功能：更新地图缓存的黑名单与拓扑，并重建切片索引中连接线两端的邻接
// 说明：只能在两次Step之间调用；死路表、禁止变道表与路网顶点保持加载时的结果
func (ctx *Context) AddToBlacklist(link entity.LinkUID) {
	if ctx.cache.IsBlacklisted(link) {
		return
	}
	ctx.cache.AddToBlacklist(link)
	ctx.index.Relink(ctx.cache, link)
}

// Init 重置时钟并投放探测车
func (ctx *Context) Init() {
	ctx.clock.Init()
	if lower, upper, ok := ctx.cache.Envelope(); ok {
		log.Infof("map %s: envelope (%.1f, %.1f)-(%.1f, %.1f)",
			ctx.cache.MapName(), lower.X, lower.Y, upper.X, upper.Y)
	}
	s := ctx.index.Stats()
	log.Infof("Lane: %d", len(ctx.cache.Lanes()))
	log.Infof("Link: %d", len(ctx.cache.Links()))
	log.Infof("Road: %d", len(ctx.cache.Roads()))
	log.Infof("Vertex: %d", len(ctx.network.Vertices()))
	log.Infof("Segment: %d nodes on %d lanes/links", s.Nodes, s.Refs)
	ctx.vehicles.Init()
}

// Release 注销全部探测车并清空全部数据表
func (ctx *Context) Release() {
	ctx.vehicles.Release()
	ctx.index.Release()
	ctx.network.Release()
	ctx.cache.Release()
}

// Close 关闭sidecar并等待退出
func (ctx *Context) Close() {
	if ctx.closed.Load() {
		return
	}
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
		<-ctx.sidecarCloseCh
	}
	ctx.closed.Store(true)
}
