package hashed

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// 长度小于该值的余量不单独成桶
const remainderEps = 1e-6

// BucketCount 长度为length的车道/连接线切分出的桶数
// 说明：floor(length/seg)个完整桶，余量存在时再加一个
func BucketCount(length, seg float64) int32 {
	if length <= 0 || seg <= 0 {
		return 0
	}
	full := math.Floor(length / seg)
	if length-full*seg > remainderEps {
		full++
	}
	return int32(full)
}

// NewInfo 第idx个桶的切片信息
func NewInfo(ref entity.LocationRef, idx int32, length, seg float64) entity.HashedLaneInfo {
	return entity.HashedLaneInfo{
		Ref:   ref,
		Index: idx,
		Start: seg * float64(idx),
		End:   math.Min(seg*float64(idx+1), length),
	}
}

// InfoOf 位置s所在的切片信息
// 返回：s超出[0, length]时取首/末桶；长度为0时ok为false
func InfoOf(ref entity.LocationRef, s, length, seg float64) (info entity.HashedLaneInfo, ok bool) {
	count := BucketCount(length, seg)
	if count == 0 {
		return entity.HashedLaneInfo{}, false
	}
	return NewInfo(ref, bucketIndex(s, seg, count), length, seg), true
}

func bucketIndex(s, seg float64, count int32) int32 {
	return lo.Clamp(int32(math.Floor(s/seg)), 0, count-1)
}
