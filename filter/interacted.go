package filter

import (
	"context"

	"github.com/vibeshop/recommend/core"
)

// InteractedFilter 过滤掉用户已经交互过的商品（任意行为类型）。
// 召回源本身已经排除了已交互商品，这里是 Pipeline 级兜底，
// 防止配置了不感知交互历史的召回源时把看过的商品推回去。
type InteractedFilter struct {
	// Log 可选；为空时只依赖 rctx.SeenSet。
	Log core.InteractionLog
}

func (f *InteractedFilter) Name() string {
	return "filter.interacted"
}

func (f *InteractedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" {
		return false, nil
	}

	if rctx.Seen(item.ID) {
		return true, nil
	}

	if rctx.SeenSet == nil && f.Log != nil {
		seen, err := f.Log.SeenSet(ctx, rctx.UserID)
		if err != nil {
			return false, nil
		}
		rctx.SeenSet = seen
		_, ok := seen[item.ID]
		return ok, nil
	}

	return false, nil
}

// 确保 InteractedFilter 实现了 Filter 接口
var _ Filter = (*InteractedFilter)(nil)
