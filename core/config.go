package core

import "time"

// 打分权重与 TTL 是配置默认值而非业务硬约束，全部可在 config 层覆盖。

// RecommendConfig 是推荐核心的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultTopKNeighbors 返回协同召回考虑的 TopK 相似用户数
	DefaultTopKNeighbors() int

	// DefaultLimit 返回单次生成的默认推荐条数
	DefaultLimit() int

	// DefaultTTL 返回推荐结果的存活时长
	DefaultTTL() time.Duration

	// DefaultTimeout 返回单次生成运行的超时时间
	DefaultTimeout() time.Duration

	// DefaultPopularityWindow 返回热度统计的时间窗口
	DefaultPopularityWindow() time.Duration
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultTopKNeighbors() int {
	return 20
}

func (c *DefaultRecommendConfig) DefaultLimit() int {
	return 10
}

func (c *DefaultRecommendConfig) DefaultTTL() time.Duration {
	return 24 * time.Hour
}

func (c *DefaultRecommendConfig) DefaultTimeout() time.Duration {
	return 5 * time.Second
}

func (c *DefaultRecommendConfig) DefaultPopularityWindow() time.Duration {
	return 7 * 24 * time.Hour
}
