package core

import "github.com/vibeshop/recommend/pkg/utils"

// Item 是 Pipeline 中流转的候选商品。
// ID 对应商品 ID；Score 的语义由所处阶段决定（召回分 / 混合分）。
type Item struct {
	ID    string
	Score float64

	// Meta 携带打分时的商品快照字段（category / price 等），
	// 供规则过滤表达式引用。
	Meta map[string]any

	// Labels 携带算法、置信、解释文案等标签，全链路透传。
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入标签；同名标签按 MergeLabel 规则合并。
func (it *Item) PutLabel(key string, label utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, label)
		return
	}
	it.Labels[key] = label
}

// GetLabel 读取标签。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	lbl, ok := it.Labels[key]
	return lbl, ok
}
