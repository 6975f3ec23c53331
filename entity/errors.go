package entity

import "errors"

var (
	// ErrEntityUnavailable 车道/连接线/道路ID无法在地图中解析
	ErrEntityUnavailable = errors.New("entity unavailable")
	// ErrLoadConnection 无法连接地图数据源
	ErrLoadConnection = errors.New("map load connection failure")
	// ErrInconsistentTopology 合并后的端点在空间上不重合
	ErrInconsistentTopology = errors.New("inconsistent topology assumption")
)
