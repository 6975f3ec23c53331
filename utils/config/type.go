package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：支持MongoDB数据库和文件系统两种数据源，支持缓存机制
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.pb
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
// 功能：返回配置的数据库名称
// 返回：数据库名称字符串
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
// 功能：返回配置的集合名称
// 返回：集合名称字符串
func (p InputPath) GetColl() string {
	return p.Col
}

// GetCachePath 获取缓存文件路径
// 功能：返回缓存文件的完整路径
// 返回：缓存文件路径字符串
// 算法说明：
// 1. 如果指定了缓存路径，直接返回
// 2. 否则使用默认命名规则：{数据库名}.{集合名}.pb
// 说明：提供统一的缓存路径获取接口
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	return p.DB + "." + p.Col + ".pb"
}

// Input 指定模拟器所有输入数据的配置项
// 功能：定义仿真系统的所有输入数据配置
// 说明：仅包含高精地图
type Input struct {
	URI string    `yaml:"uri"` // MongoDB连接字符串
	Map InputPath `yaml:"map"` // 地图
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：控制仿真的时间范围、步长和精度
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
}

// HDMap 地图缓存与索引的参数
// 功能：定义地图缓存、拓扑合并、切片索引的数值参数与过滤配置
// 说明：零值字段由WithDefaults填充默认值
type HDMap struct {
	ConnectLaneDist      float64 `yaml:"connect_lane_dist,omitempty"`               // 车道首尾相接的距离阈值（米）
	MapLocationInterval  float64 `yaml:"map_location_interval,omitempty"`           // 几何重采样控制点间隔（米）
	SubSectionPower      int32   `yaml:"sub_section_power,omitempty"`               // 切片长度为2^power米
	DisableAutoRefuse    bool    `yaml:"disable_auto_refuse_change_lane,omitempty"` // 关闭分合流处禁止变道的自动识别
	DeadEndMaxIterations int     `yaml:"dead_end_max_iterations,omitempty"`         // 死路回溯的最大迭代次数
	JunctionLinkLength   float64 `yaml:"junction_link_length,omitempty"`            // 寻找路口时视为零长度连接线的阈值（米）
	JointPointTolerance  float64 `yaml:"joint_point_tolerance,omitempty"`           // 合并端点的空间一致性阈值（米）
	FilterFile           string  `yaml:"filter_file,omitempty"`                     // 地图过滤配置文件路径（JSON）
}

// 地图参数默认值
const (
	DefaultConnectLaneDist      = 0.5
	DefaultMapLocationInterval  = 2.0
	DefaultSubSectionPower      = 4
	DefaultDeadEndMaxIterations = 100
	DefaultJunctionLinkLength   = 0.5
	DefaultJointPointTolerance  = 1.0
)

// WithDefaults 返回零值字段被默认值填充后的配置
func (c HDMap) WithDefaults() HDMap {
	if c.ConnectLaneDist <= 0 {
		c.ConnectLaneDist = DefaultConnectLaneDist
	}
	if c.MapLocationInterval <= 0 {
		c.MapLocationInterval = DefaultMapLocationInterval
	}
	if c.SubSectionPower <= 0 {
		c.SubSectionPower = DefaultSubSectionPower
	}
	if c.DeadEndMaxIterations <= 0 {
		c.DeadEndMaxIterations = DefaultDeadEndMaxIterations
	}
	if c.JunctionLinkLength <= 0 {
		c.JunctionLinkLength = DefaultJunctionLinkLength
	}
	if c.JointPointTolerance <= 0 {
		c.JointPointTolerance = DefaultJointPointTolerance
	}
	return c
}

// SegmentLength 切片长度（米）
func (c HDMap) SegmentLength() float64 {
	return float64(int64(1) << c.SubSectionPower)
}

// Probe 探测车流配置
// 功能：定义在地图上行驶、登记并执行邻车搜索的探测车辆
type Probe struct {
	Vehicles       int32   `yaml:"vehicles"`                  // 车辆数
	Seed           uint64  `yaml:"seed,omitempty"`            // 随机数种子
	Length         float64 `yaml:"length,omitempty"`          // 车长（米），默认5
	Speed          float64 `yaml:"speed,omitempty"`           // 车速（米/秒），默认10
	SearchDistance float64 `yaml:"search_distance,omitempty"` // 邻车搜索距离（米），默认50
	LaneChangeProb float64 `yaml:"lane_change_prob,omitempty"` // 每步尝试变道的概率，默认0（不变道）
}

// WithDefaults 返回零值字段被默认值填充后的配置
func (c Probe) WithDefaults() Probe {
	if c.Length <= 0 {
		c.Length = 5
	}
	if c.Speed <= 0 {
		c.Speed = 10
	}
	if c.SearchDistance <= 0 {
		c.SearchDistance = 50
	}
	return c
}

// Metrics 指标输出配置
type Metrics struct {
	Listen string `yaml:"listen,omitempty"` // Prometheus指标HTTP监听地址，为空则不启动
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
// 说明：包含输入、控制、地图、探测车与指标配置
type Config struct {
	Input   Input   `yaml:"input"`             // 输入
	Control Control `yaml:"control"`           // 模拟过程控制
	HDMap   HDMap   `yaml:"hdmap,omitempty"`   // 地图缓存与索引
	Probe   Probe   `yaml:"probe,omitempty"`   // 探测车流
	Metrics Metrics `yaml:"metrics,omitempty"` // 指标
}
