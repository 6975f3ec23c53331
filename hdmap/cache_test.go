package hdmap_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/mapsdk"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func uid(road, section, lane int32) entity.LaneUID {
	return entity.LaneUID{RoadID: road, SectionID: section, LaneID: lane}
}

// chainMap 道路1的三个路段首尾相接，末端为死路
func chainMap() *mapsdk.Map {
	return mapsdk.NewBuilder("chain").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(50, 0)).
		DrivingLane(uid(1, 1, -1), pt(50, 0), pt(100, 0)).
		DrivingLane(uid(1, 2, -1), pt(100, 0), pt(150, 0)).
		Build()
}

// junctionMap 道路1（两条车道）在x=100处的路口分别连接到直行的道路2、左转的道路3、右转的道路5
func junctionMap() *mapsdk.Map {
	return mapsdk.NewBuilder("junction").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(100, 0)).
		DrivingLane(uid(1, 0, -2), pt(0, -3.5), pt(100, -3.5)).
		DrivingLane(uid(2, 0, -1), pt(120, 0), pt(220, 0)).
		DrivingLane(uid(3, 0, -1), pt(110, 10), pt(110, 110)).
		Lane(uid(4, 0, -1), mapv2.LaneType_LANE_TYPE_WALKING, pt(100, 5), pt(100, 50)).
		DrivingLane(uid(5, 0, -1), pt(110, -13.5), pt(110, -113.5)).
		Link(10, uid(1, 0, -1), uid(2, 0, -1), pt(100, 0), pt(120, 0)).
		Link(11, uid(1, 0, -1), uid(3, 0, -1), pt(100, 0), pt(105, 0), pt(110, 5), pt(110, 10)).
		Link(12, uid(1, 0, -2), uid(2, 0, -1), pt(100, -3.5), pt(120, 0)).
		Link(13, uid(1, 0, -1), uid(4, 0, -1), pt(100, 0), pt(100, 5)).
		Link(14, uid(1, 0, -2), uid(5, 0, -1), pt(100, -3.5), pt(105, -3.5), pt(110, -8.5), pt(110, -13.5)).
		Link(99, uid(7, 0, -1), uid(2, 0, -1), pt(0, 0), pt(120, 0)).
		Build()
}

func writeFilter(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "filter.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const junctionFilter = `{
  "hdmap_advanced_cfg": [
    {
      "HDMapNameWithExtern": "other",
      "blacklist_from_to_roadId": [{"fromRoadId": 1, "toRoadId": 3}]
    },
    {
      "HDMapNameWithExtern": "junction",
      "blacklist_from_to_laneUid": [{"fromLaneUid": "1.0.-2", "toLaneUid": "2.0.-1"}],
      "refuse_switch_left_lane": ["1.0.-2"],
      "refuse_switch_right_road": [3],
      "expand_vision": [
        {
          "source_link": {"fromLaneUid": "1.0.-1", "toLaneUid": "3.0.-1"},
          "expand_links": [{"fromLaneUid": "1.0.-2", "toLaneUid": "5.0.-1", "distance": 30}]
        }
      ]
    }
  ]
}`

func loadCache(t *testing.T, m entity.IMapSDK, cfg config.HDMap) *hdmap.Cache {
	c := hdmap.New(m, cfg)
	require.NoError(t, c.Load())
	t.Cleanup(c.Release)
	return c
}

func TestLoadWithoutSource(t *testing.T) {
	c := hdmap.New(nil, config.HDMap{})
	assert.ErrorIs(t, c.Load(), entity.ErrLoadConnection)
}

func TestChainTopology(t *testing.T) {
	c := loadCache(t, chainMap(), config.HDMap{})
	l1, l2, l3 := uid(1, 0, -1), uid(1, 1, -1), uid(1, 2, -1)

	assert.Equal(t, []entity.LaneUID{l1, l2, l3}, c.Lanes())
	assert.Equal(t, []entity.LaneUID{l2}, c.NextLanesOf(l1))
	assert.Equal(t, []entity.LaneUID{l3}, c.NextLanesOf(l2))
	assert.Empty(t, c.NextLanesOf(l3))
	assert.Equal(t, []entity.LaneUID{l1}, c.PrevLanesOf(l2))
	assert.Empty(t, c.PrevLanesOf(l1))

	// 前驱后继互为对称
	for _, a := range c.Lanes() {
		for _, b := range c.NextLanesOf(a) {
			assert.Contains(t, c.PrevLanesOf(b), a)
		}
	}

	assert.InDelta(t, 50, c.LengthOf(entity.OnLane(l2)), 1e-6)
	assert.InDelta(t, 75, c.PositionAt(entity.OnLane(l2), 25).X, 1e-6)
	assert.InDelta(t, 0, c.DirectionAt(entity.OnLane(l2), 25), 1e-9)
	assert.Equal(t, 0.0, c.LengthOf(entity.OnLane(uid(9, 0, -1))))

	start, end, ok := c.RoadStartEnd(1)
	require.True(t, ok)
	assert.InDelta(t, 0, start.X, 1e-6)
	assert.InDelta(t, 150, end.X, 1e-6)

	lower, upper, ok := c.Envelope()
	require.True(t, ok)
	assert.InDelta(t, 0, lower.X, 1e-6)
	assert.InDelta(t, 150, upper.X, 1e-6)

	report := c.Check()
	assert.True(t, report.OK())
}

func TestDeadEndPropagation(t *testing.T) {
	c := loadCache(t, chainMap(), config.HDMap{})
	for _, l := range []entity.LaneUID{uid(1, 0, -1), uid(1, 1, -1), uid(1, 2, -1)} {
		p, ok := c.IsDeadEnd(l)
		require.True(t, ok, l.String())
		assert.InDelta(t, 150, p.X, 1e-6)
		assert.InDelta(t, 0, p.Y, 1e-6)
	}
}

func TestDeadEndIterationCap(t *testing.T) {
	c := loadCache(t, chainMap(), config.HDMap{DeadEndMaxIterations: 1})
	_, ok := c.IsDeadEnd(uid(1, 2, -1))
	assert.True(t, ok)
	_, ok = c.IsDeadEnd(uid(1, 1, -1))
	assert.True(t, ok)
	_, ok = c.IsDeadEnd(uid(1, 0, -1))
	assert.False(t, ok)
}

func TestDeadEndStopsAtBranch(t *testing.T) {
	m := mapsdk.NewBuilder("branch").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(50, 0)).
		DrivingLane(uid(1, 1, -1), pt(50, 0), pt(100, 0)).
		DrivingLane(uid(1, 2, -1), pt(100, 0), pt(150, 0)).
		DrivingLane(uid(9, 0, -1), pt(60, 10), pt(60, 100)).
		Link(1, uid(1, 1, -1), uid(9, 0, -1), pt(100, 0), pt(60, 10)).
		Build()
	c := loadCache(t, m, config.HDMap{})
	_, ok := c.IsDeadEnd(uid(1, 2, -1))
	assert.True(t, ok)
	_, ok = c.IsDeadEnd(uid(9, 0, -1))
	assert.True(t, ok)
	// 上游车道有两个不同的死路终点可达，不会被标记为通向其中任一个
	_, ok = c.IsDeadEnd(uid(1, 1, -1))
	assert.False(t, ok)
	_, ok = c.IsDeadEnd(uid(1, 0, -1))
	assert.False(t, ok)
}

func TestDeadEndShortLinkBranch(t *testing.T) {
	// 两条短连接线使两个死路终点都成为上游车道的后继车道，结果与死路的处理顺序无关
	for _, road := range []int32{9, 0} {
		branch := uid(road, 0, -1)
		m := mapsdk.NewBuilder("short-branch").
			DrivingLane(uid(1, 0, -1), pt(0, 0), pt(50, 0)).
			DrivingLane(uid(1, 1, -1), pt(50, 0), pt(100, 0)).
			DrivingLane(uid(2, 0, -1), pt(100.2, 0), pt(150, 0)).
			DrivingLane(branch, pt(100, 0.3), pt(100, 100)).
			Link(1, uid(1, 1, -1), uid(2, 0, -1), pt(100, 0), pt(100.2, 0)).
			Link(2, uid(1, 1, -1), branch, pt(100, 0), pt(100, 0.3)).
			Build()
		c := loadCache(t, m, config.HDMap{})
		require.ElementsMatch(t, []entity.LaneUID{uid(2, 0, -1), branch}, c.NextLanesOf(uid(1, 1, -1)))

		p, ok := c.IsDeadEnd(uid(2, 0, -1))
		require.True(t, ok)
		assert.InDelta(t, 150, p.X, 1e-6)
		p, ok = c.IsDeadEnd(branch)
		require.True(t, ok)
		assert.InDelta(t, 100, p.Y, 1e-6)
		_, ok = c.IsDeadEnd(uid(1, 1, -1))
		assert.False(t, ok, "branch road %d", road)
		_, ok = c.IsDeadEnd(uid(1, 0, -1))
		assert.False(t, ok, "branch road %d", road)
	}
}

func TestJunctionBlacklist(t *testing.T) {
	c := loadCache(t, junctionMap(), config.HDMap{FilterFile: writeFilter(t, junctionFilter)})
	a, b := uid(1, 0, -1), uid(1, 0, -2)
	l10 := entity.LinkUID{LinkID: 10, From: a, To: uid(2, 0, -1)}
	l11 := entity.LinkUID{LinkID: 11, From: a, To: uid(3, 0, -1)}
	l12 := entity.LinkUID{LinkID: 12, From: b, To: uid(2, 0, -1)}
	l13 := entity.LinkUID{LinkID: 13, From: a, To: uid(4, 0, -1)}
	l14 := entity.LinkUID{LinkID: 14, From: b, To: uid(5, 0, -1)}

	require.Len(t, c.Filter().Entries, 1)
	assert.True(t, c.IsBlacklisted(l12), "configured lane pair")
	assert.True(t, c.IsBlacklisted(l13), "walking lane destination")
	assert.False(t, c.IsBlacklisted(l10))
	assert.False(t, c.IsBlacklisted(l11), "road pair of another map")

	assert.Equal(t, []entity.LinkUID{l10, l11}, c.NextLinksFrom(a))
	assert.Equal(t, []entity.LinkUID{l14}, c.NextLinksFrom(b))
	assert.Equal(t, []entity.LinkUID{l10}, c.PrevLinksTo(uid(2, 0, -1)))
	assert.NotContains(t, c.Links(), l12)
	// 路口连接线较长，不作为后继车道
	assert.Empty(t, c.NextLanesOf(a))

	assert.Equal(t, []int32{2, 3, 5}, c.NextRoadsOf(1))
	assert.Equal(t, []int32{1}, c.PrevRoadsOf(2))
	assert.Equal(t, []entity.LinkUID{l10}, c.LinksBetweenRoads(1, 2))
	assert.Empty(t, c.LinksBetweenRoads(1, 4))

	// 运行时加入黑名单后重新计算
	c.AddToBlacklist(l10)
	assert.Equal(t, []entity.LinkUID{l11}, c.NextLinksFrom(a))
	assert.Empty(t, c.PrevLinksTo(uid(2, 0, -1)))
	assert.Equal(t, []int32{3, 5}, c.NextRoadsOf(1))
	assert.Empty(t, c.LinksBetweenRoads(1, 2))

	for _, r := range []int32{2, 3, 5} {
		_, ok := c.IsDeadEnd(uid(r, 0, -1))
		assert.True(t, ok)
	}
	_, ok := c.IsDeadEnd(a)
	assert.False(t, ok)

	assert.Equal(t, hdmap.PhaseStraight, c.ControlPhaseOf(l10))
	assert.Equal(t, hdmap.PhaseLeft, c.ControlPhaseOf(l11))
	assert.Equal(t, hdmap.PhaseRight, c.ControlPhaseOf(l14))
	assert.Equal(t, "L", c.ControlPhaseOf(l11).String())

	assert.Equal(t, []entity.ExpandLink{{From: b, To: uid(5, 0, -1), Distance: 30}}, c.ExpandVision(l11))
	assert.Empty(t, c.ExpandVision(l10))

	report := c.Check()
	assert.False(t, report.OK())
	assert.Equal(t, []entity.LinkUID{{LinkID: 99, From: uid(7, 0, -1), To: uid(2, 0, -1)}}, report.DanglingLinks)
	assert.Contains(t, report.IsolatedLanes, uid(4, 0, -1))
}

func TestRefuseLaneChange(t *testing.T) {
	c := loadCache(t, junctionMap(), config.HDMap{FilterFile: writeFilter(t, junctionFilter)})
	a, b := uid(1, 0, -1), uid(1, 0, -2)

	assert.True(t, c.RefuseLaneChange(b, entity.LEFT))
	assert.False(t, c.RefuseLaneChange(b, entity.RIGHT))
	assert.False(t, c.RefuseLaneChange(a, entity.RIGHT))
	assert.True(t, c.RefuseLaneChange(uid(3, 0, -1), entity.RIGHT))

	// 从a向右变道到b，b拒绝从左侧驶入
	assert.True(t, c.IsDstRefuseLaneChange(a, entity.RIGHT))
	assert.False(t, c.IsDstRefuseLaneChange(b, entity.LEFT))
	assert.False(t, c.IsDstRefuseLaneChange(b, entity.RIGHT))

	n, ok := c.NeighborLane(a, entity.RIGHT)
	assert.True(t, ok)
	assert.Equal(t, b, n)
	_, ok = c.NeighborLane(a, entity.LEFT)
	assert.False(t, ok)
	_, ok = c.NeighborLane(b, entity.RIGHT)
	assert.False(t, ok)

	c.AddSpecialRefuseLaneChange(7, a, entity.LEFT, 10, 20)
	c.AddSpecialRefuseLaneChange(8, a, entity.LEFT, 40, 50)
	assert.False(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 10))
	assert.True(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 15))
	assert.True(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 20))
	assert.False(t, c.IsSpecialRefuseLaneChange(a, entity.RIGHT, 15))
	assert.True(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 45))
	c.RemoveSpecialRefuseLaneChange(7)
	assert.False(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 15))
	assert.True(t, c.IsSpecialRefuseLaneChange(a, entity.LEFT, 45))
}

func splitMap() *mapsdk.Map {
	return mapsdk.NewBuilder("split").
		DrivingLane(uid(6, 0, -1), pt(0, 50), pt(50, 50)).
		DrivingLane(uid(6, 1, -1), pt(50, 50), pt(100, 53.5)).
		DrivingLane(uid(6, 1, -2), pt(50, 50), pt(100, 46.5)).
		Build()
}

func TestAutoRefuseLaneChange(t *testing.T) {
	c := loadCache(t, splitMap(), config.HDMap{})
	assert.Equal(t, []entity.LaneUID{uid(6, 1, -1), uid(6, 1, -2)}, c.NextLanesOf(uid(6, 0, -1)))
	for _, l := range c.Lanes() {
		assert.True(t, c.RefuseLaneChange(l, entity.LEFT), l.String())
		assert.True(t, c.RefuseLaneChange(l, entity.RIGHT), l.String())
	}

	off := loadCache(t, splitMap(), config.HDMap{DisableAutoRefuse: true})
	for _, l := range off.Lanes() {
		assert.False(t, off.RefuseLaneChange(l, entity.LEFT))
		assert.False(t, off.RefuseLaneChange(l, entity.RIGHT))
	}
}

func TestRoadToNextJunctionPoint(t *testing.T) {
	m := mapsdk.NewBuilder("walk").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(100, 0)).
		DrivingLane(uid(2, 0, -1), pt(100.3, 0), pt(200, 0)).
		DrivingLane(uid(3, 0, -1), pt(200.2, 0), pt(300, 0)).
		DrivingLane(uid(4, 0, -1), pt(320, 0), pt(400, 0)).
		DrivingLane(uid(5, 0, -1), pt(310, 10), pt(310, 100)).
		Link(1, uid(1, 0, -1), uid(2, 0, -1), pt(100, 0), pt(100.3, 0)).
		Link(2, uid(2, 0, -1), uid(3, 0, -1), pt(200, 0), pt(200.2, 0)).
		Link(3, uid(3, 0, -1), uid(4, 0, -1), pt(300, 0), pt(320, 0)).
		Link(4, uid(3, 0, -1), uid(5, 0, -1), pt(300, 0), pt(310, 10)).
		Build()
	c := loadCache(t, m, config.HDMap{})

	// 短连接线直接作为前驱后继
	assert.Equal(t, []entity.LaneUID{uid(2, 0, -1)}, c.NextLanesOf(uid(1, 0, -1)))
	assert.Equal(t, []entity.LaneUID{uid(1, 0, -1)}, c.PrevLanesOf(uid(2, 0, -1)))
	assert.Empty(t, c.NextLanesOf(uid(3, 0, -1)))

	p, ok := c.RoadToNextJunctionPoint(1)
	require.True(t, ok)
	assert.InDelta(t, 300, p.X, 1e-6)
	p, ok = c.RoadToNextJunctionPoint(3)
	require.True(t, ok)
	assert.InDelta(t, 300, p.X, 1e-6)
	_, ok = c.RoadToNextJunctionPoint(42)
	assert.False(t, ok)
}

func TestConcurrentColdAccess(t *testing.T) {
	warm := loadCache(t, junctionMap(), config.HDMap{})
	cold := loadCache(t, junctionMap(), config.HDMap{})
	links := warm.Links()
	want := make(map[entity.LinkUID]hdmap.ControlPhase)
	for _, l := range links {
		want[l] = warm.ControlPhaseOf(l)
	}
	wantWalk, _ := warm.RoadToNextJunctionPoint(1)
	wantBetween := warm.LinksBetweenRoads(1, 2)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, l := range links {
				assert.Equal(t, want[l], cold.ControlPhaseOf(l))
			}
			p, _ := cold.RoadToNextJunctionPoint(1)
			assert.Equal(t, wantWalk, p)
			assert.Equal(t, wantBetween, cold.LinksBetweenRoads(1, 2))
		}()
	}
	wg.Wait()
}

func TestParseFilter(t *testing.T) {
	f, err := hdmap.ParseFilter([]byte(junctionFilter), "junction")
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	e := f.Entries[0]
	assert.Equal(t, []string{"1.0.-2"}, e.RefuseLeftLanes)
	assert.Equal(t, []int32{3}, e.RefuseRightRoads)
	require.Len(t, e.ExpandVision, 1)
	assert.Equal(t, 30.0, e.ExpandVision[0].ExpandLinks[0].Distance)
	assert.Equal(t, "5.0.-1", e.ExpandVision[0].ExpandLinks[0].ToLaneUID)

	_, err = hdmap.ParseFilter([]byte("{"), "junction")
	assert.Error(t, err)

	assert.Empty(t, hdmap.LoadFilter(filepath.Join(t.TempDir(), "missing.json"), "junction").Entries)
	assert.Empty(t, hdmap.LoadFilter(writeFilter(t, junctionFilter), "nothing").Entries)
	assert.Empty(t, hdmap.LoadFilter("", "junction").Entries)
}
