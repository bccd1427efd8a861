package filter

import (
	"context"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/dsl"
)

// RuleFilter 是规则过滤器：用 CEL 表达式表达候选约束。
// 表达式为真的商品被过滤掉。
//
// 示例：
//   - `item.price > 500.0`               → 过滤高价商品
//   - `label.recall_source == "content"` → 过滤某一来源的候选
//   - `rctx.scene == "gift" && item.score < 0.3`
type RuleFilter struct {
	eval *dsl.Eval
	expr string
}

// NewRuleFilter 编译一个规则过滤器；表达式非法时返回错误。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	eval, err := dsl.NewEval(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{eval: eval, expr: expr}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

// Expr 返回过滤器的原始表达式（用于日志/调试）。
func (f *RuleFilter) Expr() string {
	return f.expr
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.eval == nil {
		return false, nil
	}
	return f.eval.Evaluate(item, rctx), nil
}

// 确保 RuleFilter 实现了 Filter 接口
var _ Filter = (*RuleFilter)(nil)
