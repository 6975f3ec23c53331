package lane

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/entity"
)

// LinkData 车道连接线原始数据
type LinkData struct {
	UID  entity.LinkUID   // 连接线标识
	Line []geometry.Point // 中心线
}

// Link 车道连接线实体
// 功能：连接路口两端车道（或首尾相接的两条道路）的连接线
type Link struct {
	polyline

	uid entity.LinkUID
}

func newLink(base LinkData) (*Link, bool) {
	if len(base.Line) < 2 {
		log.Warnf("skip %v: center line has %d points", base.UID, len(base.Line))
		return nil, false
	}
	return &Link{polyline: newPolyline(base.Line), uid: base.UID}, true
}

func (l *Link) String() string {
	return fmt.Sprintf("Link %v", l.uid)
}

// UID 获取连接线标识
func (l *Link) UID() entity.LinkUID {
	return l.uid
}

// Length 获取连接线长度
func (l *Link) Length() float64 {
	return l.length
}

// Line 获取连接线中心线
func (l *Link) Line() []geometry.Point {
	return l.line
}

// GetPositionByS 将s坐标转换为xy坐标
func (l *Link) GetPositionByS(s float64) geometry.Point {
	return l.positionByS(s)
}
