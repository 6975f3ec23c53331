package config

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，地图与探测车参数已填充默认值
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All   Config  // 全部配置
	C     Control // 全局控制配置
	HDMap HDMap   // 地图缓存与索引参数
	Probe Probe   // 探测车流参数
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，填充默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
// 算法说明：
// 1. 复制原始配置
// 2. 地图参数与探测车参数中的零值替换为默认值
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	rc.HDMap = config.HDMap.WithDefaults()
	rc.Probe = config.Probe.WithDefaults()

	return rc
}
