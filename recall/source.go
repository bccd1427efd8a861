package recall

import (
	"context"

	"github.com/vibeshop/recommend/core"
)

// Source 是召回源的抽象接口：给定上下文，产出候选商品及其分数。
// 召回源的打分是纯计算，所有 I/O 都走注入的存储/日志接口。
type Source interface {
	// Name 返回召回源名称（用于日志/标签）
	Name() string

	// Recall 执行召回，返回打分后的候选集。
	// 信号不足时返回空列表，这是合法的数据状态，不是错误。
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
