package mapsdk_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/mapsdk"
)

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func TestBuilder(t *testing.T) {
	a := entity.LaneUID{RoadID: 1, SectionID: 0, LaneID: -1}
	b := entity.LaneUID{RoadID: 1, SectionID: 0, LaneID: -2}
	c := entity.LaneUID{RoadID: 1, SectionID: 1, LaneID: -1}
	m := mapsdk.NewBuilder("test.xodr").
		DrivingLane(b, pt(0, -3.5), pt(50, -3.5)).
		DrivingLane(a, pt(0, 0), pt(50, 0)).
		DrivingLane(c, pt(50, 0), pt(80, 0)).
		DrivingLane(entity.LaneUID{RoadID: 2, LaneID: -1}, pt(0, 0)). // 单点中心线被跳过
		Link(7, c, a, pt(80, 0), pt(0, 0)).
		RoadName(1, "main").
		Build()

	assert.Equal(t, "test.xodr", m.Name())
	assert.Len(t, m.Lanes(), 3)
	assert.Len(t, m.Links(), 1)

	r, err := m.Road(1)
	require.NoError(t, err)
	assert.Equal(t, "main", r.Name())
	assert.Equal(t, int32(2), r.SectionCount())
	assert.Equal(t, []entity.LaneUID{a, b}, r.LanesUnderSection(0))
	assert.Nil(t, r.LanesUnderSection(5))

	l, err := m.Lane(a)
	require.NoError(t, err)
	assert.InDelta(t, 50, l.Length(), 1e-9)
	assert.InDelta(t, 20, l.GetPositionByS(20).X, 1e-9)
	assert.InDelta(t, 12, l.ProjectToLane(pt(12, 1)), 1e-9)

	_, err = m.Lane(entity.LaneUID{RoadID: 2, LaneID: -1})
	assert.ErrorIs(t, err, entity.ErrEntityUnavailable)
	_, err = m.Link(entity.LinkUID{LinkID: 7, From: a, To: c})
	assert.ErrorIs(t, err, entity.ErrEntityUnavailable)
	_, err = m.Road(3)
	assert.ErrorIs(t, err, entity.ErrEntityUnavailable)

	near, s, err := m.NearestLane(pt(60, 0.2))
	require.NoError(t, err)
	assert.Equal(t, c, near.UID())
	assert.InDelta(t, 10, s, 1e-9)
}

func TestNearestLaneEmpty(t *testing.T) {
	m := mapsdk.NewBuilder("empty").Build()
	_, _, err := m.NearestLane(pt(0, 0))
	assert.ErrorIs(t, err, entity.ErrEntityUnavailable)
}

func polyline(pts ...[2]float64) *geov2.Polyline {
	p := &geov2.Polyline{}
	for _, xy := range pts {
		p.Nodes = append(p.Nodes, &geov2.XYPosition{X: xy[0], Y: xy[1]})
	}
	return p
}

func TestFromPb(t *testing.T) {
	pb := &mapv2.Map{
		Header: &mapv2.Header{Name: "city.pb"},
		Lanes: []*mapv2.Lane{
			{Id: 1, Type: mapv2.LaneType_LANE_TYPE_DRIVING, CenterLine: polyline([2]float64{0, 0}, [2]float64{100, 0})},
			{Id: 2, Type: mapv2.LaneType_LANE_TYPE_DRIVING, CenterLine: polyline([2]float64{0, -3}, [2]float64{100, -3})},
			{Id: 3, Type: mapv2.LaneType_LANE_TYPE_DRIVING, CenterLine: polyline([2]float64{110, 0}, [2]float64{200, 0})},
			// 路口内车道
			{
				Id: 10, Type: mapv2.LaneType_LANE_TYPE_DRIVING,
				CenterLine:   polyline([2]float64{100, 0}, [2]float64{110, 0}),
				Predecessors: []*mapv2.LaneConnection{{Id: 1}, {Id: 2}},
				Successors:   []*mapv2.LaneConnection{{Id: 3}},
			},
			// 孤立的路口内车道
			{Id: 11, Type: mapv2.LaneType_LANE_TYPE_DRIVING, CenterLine: polyline([2]float64{0, 0}, [2]float64{1, 0})},
		},
		Roads: []*mapv2.Road{
			{Id: 100, Name: "a", LaneIds: []int32{1, 2}},
			{Id: 200, Name: "b", LaneIds: []int32{3}},
		},
	}
	m := mapsdk.FromPb(pb)
	assert.Equal(t, "city.pb", m.Name())
	assert.Len(t, m.Lanes(), 3)
	require.Len(t, m.Links(), 2)

	l1 := entity.LaneUID{RoadID: 100, SectionID: 0, LaneID: -1}
	l2 := entity.LaneUID{RoadID: 100, SectionID: 0, LaneID: -2}
	l3 := entity.LaneUID{RoadID: 200, SectionID: 0, LaneID: -1}
	for _, from := range []entity.LaneUID{l1, l2} {
		link, err := m.Link(entity.LinkUID{LinkID: 10, From: from, To: l3})
		require.NoError(t, err)
		assert.InDelta(t, 10, link.Length(), 1e-9)
	}
	r, err := m.Road(100)
	require.NoError(t, err)
	assert.Equal(t, []entity.LaneUID{l1, l2}, r.LanesUnderSection(0))
}
