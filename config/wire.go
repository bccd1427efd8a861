package config

import (
	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/filter"
	"github.com/vibeshop/recommend/service"
	"github.com/vibeshop/recommend/store"
)

// ServiceOptions 把配置文件的 recommend 段翻译为服务构造选项：
// 默认值（K/limit/TTL/超时/窗口）、打分权重、混合权重与规则过滤器。
// 规则表达式非法时返回错误，配置不会被部分应用。
func (c *Config) ServiceOptions() ([]service.Option, error) {
	opts := []service.Option{service.WithConfig(c)}

	w := c.Recommend.Weights
	if w.Category != 0 || w.Brand != 0 || w.Price != 0 || w.Style != 0 {
		opts = append(opts, service.WithScoringWeights(w.Category, w.Brand, w.Price, w.Style))
	}

	h := c.Recommend.Hybrid
	if h.Content != 0 || h.Collaborative != 0 {
		opts = append(opts, service.WithHybridWeights(h.Content, h.Collaborative))
	}

	if len(c.Recommend.Rules) > 0 {
		filters := make([]filter.Filter, 0, len(c.Recommend.Rules))
		for _, expr := range c.Recommend.Rules {
			f, err := filter.NewRuleFilter(expr)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
		opts = append(opts, service.WithFilters(filters...))
	}

	return opts, nil
}

// OpenStore 按配置文件的 store 段打开推荐存储后端。
// backend 留空时默认内存存储。
func (c *Config) OpenStore() (core.RecommendationStore, error) {
	switch c.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(c.Store.Addr, c.Store.DB)
	}
	return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation,
		"config: unknown store backend "+c.Store.Backend)
}
