package dsl

import (
	"testing"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/utils"
)

func testItem() *core.Item {
	it := core.NewItem("p1")
	it.Score = 0.85
	it.Meta["price"] = 999.0
	it.Meta["category"] = "electronics"
	it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
	it.PutLabel("algorithm", utils.Label{Value: "hybrid", Source: "rank"})
	return it
}

func TestEval(t *testing.T) {
	rctx := &core.RecommendContext{UserID: "u1", Scene: "homepage"}

	tests := []struct {
		expr string
		want bool
	}{
		{`item.score > 0.7`, true},
		{`item.score > 0.9`, false},
		{`item.price <= 200.0`, false},
		{`item.id == "p1"`, true},
		{`item.category == "electronics"`, true},
		{`label.recall_source == "content"`, true},
		{`label.algorithm == "hybrid" && item.score > 0.5`, true},
		{`rctx.scene == "homepage"`, true},
		{`rctx.user_id == "u2"`, false},
		{`item.score + 0.1`, false}, // 非布尔结果视为 false
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			eval, err := NewEval(tt.expr)
			if err != nil {
				t.Fatalf("NewEval(%q) error: %v", tt.expr, err)
			}
			if got := eval.Evaluate(testItem(), rctx); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_MissingField(t *testing.T) {
	eval, err := NewEval(`item.brand == "Apple"`)
	if err != nil {
		t.Fatalf("NewEval() error: %v", err)
	}
	// 字段缺失时求值错误，视为 false 不中断链路
	if eval.Evaluate(testItem(), nil) {
		t.Error("missing field must evaluate to false")
	}
}

func TestEval_CompileError(t *testing.T) {
	if _, err := NewEval(`&&&`); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestEval_NilItem(t *testing.T) {
	eval, err := NewEval(`true`)
	if err != nil {
		t.Fatalf("NewEval() error: %v", err)
	}
	if eval.Evaluate(nil, nil) {
		t.Error("nil item must evaluate to false")
	}
}
