package core

import "github.com/vibeshop/recommend/pkg/utils"

// RecommendContext 承载用户/场景/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Preferences 是用户声明式偏好，内容召回的输入。
	// 为空（或 Empty）表示冷启动，由上层决定回退策略。
	Preferences *UserPreferences

	// PositiveSet 是用户的正反馈商品集合（like/purchase），协同召回的输入。
	PositiveSet map[string]struct{}

	// SeenSet 是用户交互过的全部商品集合（任意类型），用于候选过滤。
	SeenSet map[string]struct{}

	// Labels 是用户级标签，可驱动整个 Pipeline 行为。
	// 例如：新用户、价格敏感等。
	Labels map[string]utils.Label

	// Params 请求级上下文参数（limit、scene 参数、实时特征等）。
	Params map[string]any
}

// Seen 判断用户是否交互过某商品。
func (rctx *RecommendContext) Seen(productID string) bool {
	if rctx == nil || rctx.SeenSet == nil {
		return false
	}
	_, ok := rctx.SeenSet[productID]
	return ok
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
