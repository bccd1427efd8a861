// Package config 提供服务级 YAML 配置与配置驱动的 Node 构建。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibeshop/recommend/core"
)

// Duration 是支持 "24h" / "5s" 写法的 YAML 时长。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config 是推荐服务的配置结构。
// 所有字段都有默认值：邻居 K、TTL、权重等是配置项而非硬编码常量。
type Config struct {
	Recommend struct {
		NeighborK        int      `yaml:"neighbor_k"`
		Limit            int      `yaml:"limit"`
		TTL              Duration `yaml:"ttl"`
		Timeout          Duration `yaml:"timeout"`
		PopularityWindow Duration `yaml:"popularity_window"`

		Weights struct {
			Category float64 `yaml:"category"`
			Brand    float64 `yaml:"brand"`
			Price    float64 `yaml:"price"`
			Style    float64 `yaml:"style"`
		} `yaml:"weights"`

		Hybrid struct {
			Content       float64 `yaml:"content"`
			Collaborative float64 `yaml:"collaborative"`
		} `yaml:"hybrid"`

		// Rules 是 CEL 候选约束表达式，为真的商品被过滤
		Rules []string `yaml:"rules"`
	} `yaml:"recommend"`

	Store struct {
		Backend string `yaml:"backend"` // memory / redis
		Addr    string `yaml:"addr"`
		DB      int    `yaml:"db"`
	} `yaml:"store"`
}

// Load 从 YAML 文件加载配置。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// core.RecommendConfig 实现：零值回退到包默认

func (c *Config) DefaultTopKNeighbors() int {
	if c.Recommend.NeighborK > 0 {
		return c.Recommend.NeighborK
	}
	return (&core.DefaultRecommendConfig{}).DefaultTopKNeighbors()
}

func (c *Config) DefaultLimit() int {
	if c.Recommend.Limit > 0 {
		return c.Recommend.Limit
	}
	return (&core.DefaultRecommendConfig{}).DefaultLimit()
}

func (c *Config) DefaultTTL() time.Duration {
	if c.Recommend.TTL > 0 {
		return time.Duration(c.Recommend.TTL)
	}
	return (&core.DefaultRecommendConfig{}).DefaultTTL()
}

func (c *Config) DefaultTimeout() time.Duration {
	if c.Recommend.Timeout > 0 {
		return time.Duration(c.Recommend.Timeout)
	}
	return (&core.DefaultRecommendConfig{}).DefaultTimeout()
}

func (c *Config) DefaultPopularityWindow() time.Duration {
	if c.Recommend.PopularityWindow > 0 {
		return time.Duration(c.Recommend.PopularityWindow)
	}
	return (&core.DefaultRecommendConfig{}).DefaultPopularityWindow()
}

// 确保 Config 实现了 RecommendConfig 接口
var _ core.RecommendConfig = (*Config)(nil)
