package filter

import (
	"context"
	"testing"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/utils"
)

func item(id string, score float64, price float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.Meta = map[string]any{"price": price}
	return it
}

func TestRuleFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		item *core.Item
		rctx *core.RecommendContext
		want bool
	}{
		{
			name: "price rule filters expensive item",
			expr: `item.price > 500.0`,
			item: item("p1", 0.5, 999.0),
			want: true,
		},
		{
			name: "price rule keeps cheap item",
			expr: `item.price > 500.0`,
			item: item("p1", 0.5, 29.9),
			want: false,
		},
		{
			name: "label match",
			expr: `label.recall_source == "popularity"`,
			item: func() *core.Item {
				it := item("p1", 0.5, 10)
				it.PutLabel("recall_source", utils.Label{Value: "popularity", Source: "recall"})
				return it
			}(),
			want: true,
		},
		{
			name: "scene condition",
			expr: `rctx.scene == "gift" && item.score < 0.3`,
			item: item("p1", 0.2, 10),
			rctx: &core.RecommendContext{UserID: "u1", Scene: "gift"},
			want: true,
		},
		{
			name: "scene mismatch",
			expr: `rctx.scene == "gift" && item.score < 0.3`,
			item: item("p1", 0.2, 10),
			rctx: &core.RecommendContext{UserID: "u1", Scene: "homepage"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRuleFilter(tt.expr)
			if err != nil {
				t.Fatalf("NewRuleFilter(%q) error: %v", tt.expr, err)
			}
			got, err := f.ShouldFilter(context.Background(), tt.rctx, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleFilter_CompileError(t *testing.T) {
	if _, err := NewRuleFilter(`item.price >`); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestFilterNode(t *testing.T) {
	expensive, err := NewRuleFilter(`item.price > 100.0`)
	if err != nil {
		t.Fatalf("NewRuleFilter() error: %v", err)
	}

	items := []*core.Item{
		item("p1", 0.9, 50),
		item("p2", 0.8, 150),
		item("p3", 0.7, 80),
	}

	n := &FilterNode{Filters: []Filter{expensive}}
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(out) != 2 || out[0].ID != "p1" || out[1].ID != "p3" {
		t.Fatalf("filtered output = %v, want [p1 p3]", out)
	}

	// 被过滤的条目带上 filtered 标签
	if lbl, ok := items[1].GetLabel("filtered"); !ok || lbl.Value != "true" || lbl.Source != "filter.rule" {
		t.Errorf("filtered label = %+v", lbl)
	}
}

func TestInteractedFilter(t *testing.T) {
	f := &InteractedFilter{}
	rctx := &core.RecommendContext{
		UserID:  "u1",
		SeenSet: map[string]struct{}{"p1": {}},
	}

	got, err := f.ShouldFilter(context.Background(), rctx, core.NewItem("p1"))
	if err != nil || !got {
		t.Errorf("seen item: got (%v, %v), want (true, nil)", got, err)
	}
	got, err = f.ShouldFilter(context.Background(), rctx, core.NewItem("p2"))
	if err != nil || got {
		t.Errorf("unseen item: got (%v, %v), want (false, nil)", got, err)
	}
}
