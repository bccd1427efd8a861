// Package dsl 提供基于 CEL (Common Expression Language) 的规则表达式求值，
// 用于配置驱动的候选约束（filter.RuleFilter）。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/vibeshop/recommend/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Eval 是规则表达式解释器。表达式编译一次，可对多个 item 重复求值。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.score > 0.7 / item.price <= 200.0
//   - 标签：label.recall_source == "content"
//   - 逻辑：label.algorithm == "hybrid" && item.score > 0.5
//   - 上下文：rctx.scene == "homepage"
type Eval struct {
	prg cel.Program
}

// NewEval 编译一个规则表达式。
func NewEval(expr string) (*Eval, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("init cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expr %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program expr %q: %w", expr, err)
	}

	return &Eval{prg: prg}, nil
}

// Evaluate 对单个 item 求值，返回表达式的布尔结果。
// 非布尔结果或求值错误一律视为 false，不中断链路。
func (e *Eval) Evaluate(item *core.Item, rctx *core.RecommendContext) bool {
	if item == nil {
		return false
	}

	itemMap := map[string]any{
		"id":    item.ID,
		"score": item.Score,
	}
	for k, v := range item.Meta {
		itemMap[k] = v
	}

	labelMap := make(map[string]any, len(item.Labels))
	for k, lbl := range item.Labels {
		labelMap[k] = lbl.Value
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID
		rctxMap["scene"] = rctx.Scene
	}

	out, _, err := e.prg.Eval(map[string]any{
		"item":  itemMap,
		"label": labelMap,
		"rctx":  rctxMap,
	})
	if err != nil {
		return false
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false
	}
	return result
}
