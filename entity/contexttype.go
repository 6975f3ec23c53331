package entity

import (
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/clock"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	MapSDK() IMapSDK
	MapCache() IMapCache
	RoadNetwork() IRoadNetwork
	HashedIndex() IHashedIndex
	VehicleManager() IVehicleManager
	RuntimeConfig() *config.RuntimeConfig
}
