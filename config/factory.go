package config

import (
	"context"
	"fmt"
	"time"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/filter"
	"github.com/vibeshop/recommend/pipeline"
	"github.com/vibeshop/recommend/pkg/conv"
	"github.com/vibeshop/recommend/rank"
	"github.com/vibeshop/recommend/recall"
	"github.com/vibeshop/recommend/rerank"
)

// Deps 是配置驱动构建 Node 时可用的运行时依赖。
// 配置文件只描述拓扑与参数，存储/日志等连接由调用方注入。
type Deps struct {
	Catalog core.ProductCatalog
	Log     core.InteractionLog
	KV      core.KeyValueStore
}

// NewNodeFactory 返回注册了所有内置 Node 的工厂。
func NewNodeFactory(deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	factory.Register("recall.fanout", buildFanoutNode(deps))
	factory.Register("recall.popularity", buildPopularityNode(deps))
	factory.Register("filter.rule", buildRuleFilterNode)
	factory.Register("rank.hybrid", buildHybridNode)
	factory.Register("rerank.topn", buildTopNNode)

	return factory
}

func buildFanoutNode(deps Deps) pipeline.NodeBuilder {
	return func(cfg map[string]any) (pipeline.Node, error) {
		sourcesConfig, ok := cfg["sources"].([]any)
		if !ok {
			return nil, fmt.Errorf("sources not found or invalid")
		}

		sources := make([]recall.Source, 0, len(sourcesConfig))
		for _, sc := range sourcesConfig {
			sourceMap, ok := sc.(map[string]any)
			if !ok {
				continue
			}
			sourceType := conv.ConfigGet[string](sourceMap, "type", "")
			switch sourceType {
			case "content":
				sources = append(sources, &recall.PreferenceRecall{
					Catalog:        deps.Catalog,
					CategoryWeight: conv.ConfigGetFloat64(sourceMap, "category_weight", 0),
					BrandWeight:    conv.ConfigGetFloat64(sourceMap, "brand_weight", 0),
					PriceWeight:    conv.ConfigGetFloat64(sourceMap, "price_weight", 0),
					StyleWeight:    conv.ConfigGetFloat64(sourceMap, "style_weight", 0),
				})
			case "neighbor":
				sources = append(sources, &recall.NeighborRecall{
					Log:           deps.Log,
					TopKNeighbors: int(conv.ConfigGetInt64(sourceMap, "top_k", 0)),
				})
			case "popularity":
				sources = append(sources, &recall.PopularityRecall{
					Store: deps.KV,
					Key:   conv.ConfigGet[string](sourceMap, "key", ""),
					Log:   deps.Log,
				})
			default:
				return nil, fmt.Errorf("unknown source type: %s", sourceType)
			}
		}

		fanout := &recall.Fanout{Sources: sources}
		if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
			fanout.Timeout = time.Duration(sec) * time.Second
		}
		if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
			fanout.MaxConcurrent = int(n)
		}
		return fanout, nil
	}
}

func buildPopularityNode(deps Deps) pipeline.NodeBuilder {
	return func(cfg map[string]any) (pipeline.Node, error) {
		src := &recall.PopularityRecall{
			Store: deps.KV,
			Key:   conv.ConfigGet[string](cfg, "key", ""),
			Log:   deps.Log,
		}
		if sec := conv.ConfigGetInt64(cfg, "window", 0); sec > 0 {
			src.Window = time.Duration(sec) * time.Second
		}
		return &sourceNode{src: src}, nil
	}
}

func buildRuleFilterNode(cfg map[string]any) (pipeline.Node, error) {
	exprs := conv.SliceAnyToString(cfg["rules"])
	if len(exprs) == 0 {
		return nil, fmt.Errorf("rules not found or empty")
	}

	filters := make([]filter.Filter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func buildHybridNode(cfg map[string]any) (pipeline.Node, error) {
	return &rank.HybridNode{
		ContentWeight:       conv.ConfigGetFloat64(cfg, "content_weight", 0),
		CollaborativeWeight: conv.ConfigGetFloat64(cfg, "collaborative_weight", 0),
	}, nil
}

func buildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{
		N: int(conv.ConfigGetInt64(cfg, "n", 0)),
	}, nil
}

// sourceNode 把单个召回源适配为 Recall Node。
type sourceNode struct {
	src recall.Source
}

func (n *sourceNode) Name() string        { return n.src.Name() }
func (n *sourceNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *sourceNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.src.Recall(ctx, rctx)
}
