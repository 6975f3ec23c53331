package task_test

import (
	"bytes"
	"strings"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/mapsdk"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/task"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func uid(road, section, lane int32) entity.LaneUID {
	return entity.LaneUID{RoadID: road, SectionID: section, LaneID: lane}
}

// loopMap 两条道路经两条连接线首尾相接成环
func loopMap() *mapsdk.Map {
	return mapsdk.NewBuilder("loop").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(100, 0)).
		DrivingLane(uid(2, 0, -1), pt(110, 10), pt(110, 110)).
		Link(1, uid(1, 0, -1), uid(2, 0, -1), pt(100, 0), pt(110, 10)).
		Link(2, uid(2, 0, -1), uid(1, 0, -1), pt(110, 110), pt(0, 0)).
		Build()
}

func testConfig() config.Config {
	return config.Config{
		Control: config.Control{Step: config.ControlStep{Start: 0, Total: 40, Interval: 1}},
		Probe:   config.Probe{Vehicles: 4, Seed: 3},
	}
}

func TestRunOffline(t *testing.T) {
	ctx, err := task.NewContextFromMap(testConfig(), loopMap())
	require.NoError(t, err)
	ctx.RunOffline()

	assert.Equal(t, int32(40), ctx.Clock().InternalStep)
	require.Len(t, ctx.Vehicles().Vehicles(), 4)
	assert.Equal(t, 4, ctx.Index().Stats().Registered[entity.KindVehicle])
	for _, v := range ctx.Vehicles().Vehicles() {
		// 环路上没有死路
		assert.Zero(t, v.Respawns())
		assert.Greater(t, v.V(), 0.)
	}
	assert.Len(t, ctx.RoadNetwork().Vertices(), 4)

	var buf bytes.Buffer
	require.NoError(t, ctx.DumpRoadNetwork(&buf))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 5)

	ctx.Release()
	assert.Zero(t, ctx.Index().Stats().Registered[entity.KindVehicle])
	assert.Empty(t, ctx.MapCache().Lanes())

	// 释放后可以重新构建
	again, err := task.NewContextFromMap(testConfig(), loopMap())
	require.NoError(t, err)
	again.Init()
	again.Step()
	assert.Equal(t, 4, again.Index().Stats().Registered[entity.KindVehicle])
	again.Release()
}

func TestAddToBlacklistBetweenSteps(t *testing.T) {
	ctx, err := task.NewContextFromMap(testConfig(), loopMap())
	require.NoError(t, err)
	t.Cleanup(ctx.Release)
	ctx.Init()
	ctx.Step()

	link := entity.LinkUID{LinkID: 1, From: uid(1, 0, -1), To: uid(2, 0, -1)}
	from := ctx.Index().Nodes(entity.OnLane(link.From))
	linkNodes := ctx.Index().Nodes(entity.OnLink(link))
	require.NotEmpty(t, from)
	require.NotEmpty(t, linkNodes)
	require.Contains(t, from[len(from)-1].Front(), linkNodes[0])

	ctx.AddToBlacklist(link)
	assert.True(t, ctx.Cache().IsBlacklisted(link))
	assert.Empty(t, ctx.Cache().NextLinksFrom(link.From))
	assert.NotContains(t, from[len(from)-1].Front(), linkNodes[0])
	to := ctx.Index().Nodes(entity.OnLane(link.To))
	assert.NotContains(t, to[0].Back(), linkNodes[len(linkNodes)-1])

	// 重复过滤无副作用
	ctx.AddToBlacklist(link)
	ctx.Step()
	assert.Equal(t, int32(2), ctx.Clock().InternalStep)
}

func TestNoMapSource(t *testing.T) {
	_, err := task.NewContextFromMap(testConfig(), nil)
	assert.ErrorIs(t, err, entity.ErrLoadConnection)
}
