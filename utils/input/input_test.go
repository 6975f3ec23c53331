package input_test

import (
	"os"
	"path/filepath"
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/input"
	"google.golang.org/protobuf/proto"
)

func TestLoadMapFromFile(t *testing.T) {
	pb := &mapv2.Map{
		Header: &mapv2.Header{Name: "demo.pb"},
		Lanes:  []*mapv2.Lane{{Id: 1}, {Id: 2}},
	}
	data, err := proto.Marshal(pb)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "demo.pb")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := input.LoadMap(config.Input{Map: config.InputPath{File: path}}, "")
	require.NoError(t, err)
	assert.Equal(t, "demo.pb", m.GetHeader().GetName())
	assert.Len(t, m.Lanes, 2)
}

func TestLoadMapFailure(t *testing.T) {
	_, err := input.LoadMap(config.Input{Map: config.InputPath{File: filepath.Join(t.TempDir(), "missing.pb")}}, "")
	assert.ErrorIs(t, err, entity.ErrLoadConnection)

	_, err = input.LoadMap(config.Input{Map: config.InputPath{DB: "db", Col: "map"}}, "")
	assert.ErrorIs(t, err, entity.ErrLoadConnection)
}
