package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
	"gopkg.in/yaml.v2"
)

func TestHDMapDefaults(t *testing.T) {
	c := config.HDMap{}.WithDefaults()
	assert.Equal(t, 0.5, c.ConnectLaneDist)
	assert.Equal(t, 2.0, c.MapLocationInterval)
	assert.Equal(t, int32(4), c.SubSectionPower)
	assert.Equal(t, 16.0, c.SegmentLength())
	assert.Equal(t, 100, c.DeadEndMaxIterations)

	c = config.HDMap{SubSectionPower: 3, ConnectLaneDist: 0.1}.WithDefaults()
	assert.Equal(t, 8.0, c.SegmentLength())
	assert.Equal(t, 0.1, c.ConnectLaneDist)
}

func TestConfigUnmarshalStrict(t *testing.T) {
	data := `
input:
  uri: ""
  map:
    db: srt
    col: map_test
    file: data/map.pb
control:
  step:
    start: 0
    total: 100
    interval: 1
hdmap:
  sub_section_power: 5
  disable_auto_refuse_change_lane: true
  filter_file: filter.json
probe:
  vehicles: 20
  seed: 7
  lane_change_prob: 0.1
`
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(data), &c))
	assert.Equal(t, "data/map.pb", c.Input.Map.File)
	assert.Equal(t, "srt.map_test.pb", c.Input.Map.GetCachePath())
	rc := config.NewRuntimeConfig(c)
	assert.Equal(t, 32.0, rc.HDMap.SegmentLength())
	assert.True(t, rc.HDMap.DisableAutoRefuse)
	assert.Equal(t, int32(20), rc.Probe.Vehicles)
	assert.Equal(t, 5.0, rc.Probe.Length)
	assert.Equal(t, 50.0, rc.Probe.SearchDistance)
	assert.Equal(t, 0.1, rc.Probe.LaneChangeProb)

	var bad config.Config
	assert.Error(t, yaml.UnmarshalStrict([]byte("hdmap:\n  unknown_field: 1\n"), &bad))
}
