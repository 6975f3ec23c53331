package roadnet_test

import (
	"bytes"
	"strings"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/hdmap/roadnet"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/mapsdk"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func uid(road, section, lane int32) entity.LaneUID {
	return entity.LaneUID{RoadID: road, SectionID: section, LaneID: lane}
}

func start(ref entity.LocationRef) entity.JointPointID {
	return entity.JointPointID{Ref: ref, IsStart: true}
}

func end(ref entity.LocationRef) entity.JointPointID {
	return entity.JointPointID{Ref: ref, IsStart: false}
}

func build(t *testing.T, m entity.IMapSDK) *roadnet.Network {
	c := hdmap.New(m, config.HDMap{})
	require.NoError(t, c.Load())
	t.Cleanup(c.Release)
	n := roadnet.Build(c, config.DefaultJointPointTolerance)
	t.Cleanup(n.Release)
	return n
}

func TestChainVertices(t *testing.T) {
	m := mapsdk.NewBuilder("chain").
		DrivingLane(uid(1, 0, -1), pt(0, 0), pt(50, 0)).
		DrivingLane(uid(1, 1, -1), pt(50, 0), pt(100, 0)).
		DrivingLane(uid(1, 2, -1), pt(100, 0), pt(150, 0)).
		Build()
	n := build(t, m)
	l1, l2, l3 := entity.OnLane(uid(1, 0, -1)), entity.OnLane(uid(1, 1, -1)), entity.OnLane(uid(1, 2, -1))

	require.Len(t, n.Vertices(), 4)
	assert.True(t, n.Same(end(l1), start(l2)))
	assert.True(t, n.Same(end(l2), start(l3)))
	assert.False(t, n.Same(start(l1), end(l3)))
	assert.Equal(t, 0, n.Inconsistent())
	assert.NoError(t, n.Err())

	id, ok := n.VertexOf(end(l1))
	require.True(t, ok)
	v := n.Vertices()[id]
	assert.Equal(t, id, v.ID)
	assert.Len(t, v.Members, 2)
	assert.InDelta(t, 50, v.Position.X, 1e-6)

	_, ok = n.VertexOf(start(entity.OnLane(uid(9, 0, -1))))
	assert.False(t, ok)

	// 每个端点恰好属于一个顶点
	total := 0
	for _, v := range n.Vertices() {
		total += len(v.Members)
	}
	assert.Equal(t, 6, total)
}

func TestJunctionVertices(t *testing.T) {
	a, b, c := uid(1, 0, -1), uid(2, 0, -1), uid(3, 0, -1)
	m := mapsdk.NewBuilder("junction").
		DrivingLane(a, pt(0, 0), pt(100, 0)).
		DrivingLane(b, pt(120, 0), pt(220, 0)).
		DrivingLane(c, pt(110, 10), pt(110, 110)).
		Link(1, a, b, pt(100, 0), pt(120, 0)).
		Link(2, a, c, pt(100, 0), pt(105, 0), pt(110, 5), pt(110, 10)).
		Build()
	n := build(t, m)
	l1 := entity.OnLink(entity.LinkUID{LinkID: 1, From: a, To: b})
	l2 := entity.OnLink(entity.LinkUID{LinkID: 2, From: a, To: c})

	// a的终点与两条连接线的起点合并为一个顶点
	assert.True(t, n.Same(end(entity.OnLane(a)), start(l1)))
	assert.True(t, n.Same(start(l1), start(l2)))
	assert.True(t, n.Same(end(l1), start(entity.OnLane(b))))
	assert.True(t, n.Same(end(l2), start(entity.OnLane(c))))
	assert.False(t, n.Same(end(l1), end(l2)))
	// a起点、路口、b起点、c起点、b终点、c终点
	assert.Len(t, n.Vertices(), 6)
	assert.Equal(t, 0, n.Inconsistent())

	var buf bytes.Buffer
	require.NoError(t, n.Dump(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "vertex_id,x,y,members", lines[0])
	assert.Len(t, lines, 7)
}

func TestInconsistentVertex(t *testing.T) {
	a, b := uid(1, 0, -1), uid(2, 0, -1)
	m := mapsdk.NewBuilder("bad").
		DrivingLane(a, pt(0, 0), pt(100, 0)).
		DrivingLane(b, pt(120, 0), pt(220, 0)).
		Link(1, a, b, pt(90, 0), pt(120, 0)).
		Build()
	n := build(t, m)
	assert.Equal(t, 1, n.Inconsistent())
	assert.ErrorIs(t, n.Err(), entity.ErrInconsistentTopology)
	assert.True(t, n.Same(end(entity.OnLane(a)), start(entity.OnLink(entity.LinkUID{LinkID: 1, From: a, To: b}))))
}
