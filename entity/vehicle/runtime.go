package vehicle

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// runtime 探测车运行时数据
// 说明：该数据结构需要可以被直接复制，snapshot在Prepare阶段由runtime整体赋值得到
type runtime struct {
	Ref  entity.LocationRef  // 所在车道或车道连接线
	S    float64             // 在Ref上的位置
	V    float64             // 速度
	XYZ  geometry.Point      // 坐标
	Node entity.ISegmentNode // 所在切片节点，nil表示未能定位

	Front entity.SurroundResult // 最近一次前车搜索结果
	Rear  entity.SurroundResult // 最近一次后车搜索结果

	Respawns int32 // 驶入死路后重新投放的次数
}

// sInNode 在所在切片内的偏移
func (rt *runtime) sInNode() float64 {
	if rt.Node == nil {
		return 0
	}
	return rt.Node.Info().SInNode(rt.S)
}
