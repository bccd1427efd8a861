package rank

import (
	"context"
	"sort"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pipeline"
	"github.com/vibeshop/recommend/pkg/utils"
)

// 两路信号的默认混合权重。
const (
	DefaultContentWeight       = 0.5
	DefaultCollaborativeWeight = 0.5
)

// HybridNode 是混合排序节点：把 Fanout 产出的多来源候选按商品分组合并。
//
// 合并规则：
//  - 内容分与协同分都存在：hybridScore = 0.5×content + 0.5×collaborative，
//    算法标记 "hybrid"
//  - 只有单一信号：直接使用该信号分数与算法标记
//  - 其他来源（如 popularity 兜底）原样透传
//
// 合并后按分数降序、商品 ID 升序排序，并写入置信档位标签
// （score ≥ 0.7 → high；0.4 ≤ score < 0.7 → medium；其余 → low）。
type HybridNode struct {
	// ContentWeight / CollaborativeWeight 全部为 0 时使用默认权重；
	// 设置了其中一个后，另一个的 0 表示关闭该路信号。
	ContentWeight       float64
	CollaborativeWeight float64
}

func (n *HybridNode) Name() string        { return "rank.hybrid" }
func (n *HybridNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *HybridNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// 两个权重全零视为未配置，整组取默认；
	// 设置了其中一个时，另一个的 0 是有效配置（关闭该路信号）。
	wContent, wCollab := n.ContentWeight, n.CollaborativeWeight
	if wContent == 0 && wCollab == 0 {
		wContent, wCollab = DefaultContentWeight, DefaultCollaborativeWeight
	}

	type signals struct {
		content *core.Item
		collab  *core.Item
		other   *core.Item
	}
	grouped := make(map[string]*signals, len(items))
	order := make([]string, 0, len(items)) // 保留首次出现顺序之外仍会整体重排

	for _, it := range items {
		if it == nil {
			continue
		}
		g, ok := grouped[it.ID]
		if !ok {
			g = &signals{}
			grouped[it.ID] = g
			order = append(order, it.ID)
		}
		switch algorithmOf(it) {
		case core.AlgorithmContentBased:
			g.content = it
		case core.AlgorithmCollaborative:
			g.collab = it
		default:
			g.other = it
		}
	}

	out := make([]*core.Item, 0, len(grouped))
	for _, id := range order {
		g := grouped[id]

		var merged *core.Item
		switch {
		case g.content != nil && g.collab != nil:
			merged = core.NewItem(id)
			merged.Score = wContent*g.content.Score + wCollab*g.collab.Score
			merged.Meta = g.content.Meta
			merged.PutLabel("algorithm", utils.Label{Value: string(core.AlgorithmHybrid), Source: "rank"})
			merged.PutLabel("reason", utils.Label{
				Value:  reasonOf(g.content) + "; " + reasonOf(g.collab),
				Source: "rank",
			})
		case g.content != nil:
			merged = g.content
		case g.collab != nil:
			merged = g.collab
		default:
			merged = g.other
		}
		if merged == nil {
			continue
		}

		merged.PutLabel("confidence", utils.Label{
			Value:  string(core.ClassifyConfidence(merged.Score)),
			Source: "rank",
		})
		out = append(out, merged)
	}

	// 分数降序，同分按商品 ID 升序
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// algorithmOf 读取条目的算法标签；合并过的标签取第一段。
func algorithmOf(it *core.Item) core.Algorithm {
	lbl, ok := it.GetLabel("algorithm")
	if !ok {
		return ""
	}
	value := lbl.Value
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			value = value[:i]
			break
		}
	}
	return core.Algorithm(value)
}

func reasonOf(it *core.Item) string {
	if lbl, ok := it.GetLabel("reason"); ok {
		return lbl.Value
	}
	return ""
}

// 确保 HybridNode 实现了 Node 接口
var _ pipeline.Node = (*HybridNode)(nil)
