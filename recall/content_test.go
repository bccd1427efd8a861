package recall

import (
	"context"
	"reflect"
	"testing"

	"github.com/vibeshop/recommend/core"
)

type fakeCatalog []*core.Product

func (f fakeCatalog) ListAvailable(_ context.Context, excluding map[string]struct{}) ([]*core.Product, error) {
	out := make([]*core.Product, 0, len(f))
	for _, p := range f {
		if !p.Available {
			continue
		}
		if _, ok := excluding[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f fakeCatalog) Get(_ context.Context, productID string) (*core.Product, error) {
	for _, p := range f {
		if p.ID == productID {
			return p, nil
		}
	}
	return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "not found")
}

func TestPreferenceRecall_Score(t *testing.T) {
	catalog := fakeCatalog{
		{ID: "p1", Category: "electronics", Brand: "Apple", Price: 999.99, Available: true},
		{ID: "p2", Category: "clothing", Brand: "Uniqlo", Price: 29.90, Style: "casual", Available: true},
		{ID: "p3", Category: "electronics", Brand: "Lenovo", Price: 5000.00, Available: true},
	}

	tests := []struct {
		name      string
		prefs     *core.UserPreferences
		wantIDs   []string
		wantScore map[string]float64
	}{
		{
			name: "category+brand+price match scores 0.85",
			prefs: &core.UserPreferences{
				UserID:     "u1",
				Categories: []string{"electronics"},
				Brands:     []string{"Apple"},
				PriceRange: core.PriceRange{Min: 500, Max: 1500},
			},
			// p1: 0.35 + 0.25 + 0.25 = 0.85
			// p3: 类目命中 0.35，价格超出 2 倍区间宽度归零
			wantIDs:   []string{"p1", "p3"},
			wantScore: map[string]float64{"p1": 0.85, "p3": 0.35},
		},
		{
			name: "style contributes its weight",
			prefs: &core.UserPreferences{
				UserID:     "u1",
				Categories: []string{"clothing"},
				Styles:     []string{"casual"},
			},
			wantIDs:   []string{"p2"},
			wantScore: map[string]float64{"p2": 0.5}, // 0.35 + 0.15
		},
		{
			name:    "empty preferences is cold-start signal",
			prefs:   &core.UserPreferences{UserID: "u1"},
			wantIDs: nil,
		},
		{
			name: "zero-score candidates are dropped",
			prefs: &core.UserPreferences{
				UserID:     "u1",
				Categories: []string{"books"},
			},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &PreferenceRecall{Catalog: catalog}
			rctx := &core.RecommendContext{UserID: "u1", Preferences: tt.prefs}

			items, err := r.Recall(context.Background(), rctx)
			if err != nil {
				t.Fatalf("Recall() error: %v", err)
			}

			gotIDs := make([]string, 0, len(items))
			for _, it := range items {
				gotIDs = append(gotIDs, it.ID)
			}
			if len(gotIDs) == 0 {
				gotIDs = nil
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Fatalf("got ids %v, want %v", gotIDs, tt.wantIDs)
			}

			for _, it := range items {
				if it.Score < 0 || it.Score > 1 {
					t.Errorf("score %f out of [0,1]", it.Score)
				}
				if want, ok := tt.wantScore[it.ID]; ok {
					if diff := it.Score - want; diff > 1e-9 || diff < -1e-9 {
						t.Errorf("item %s score = %f, want %f", it.ID, it.Score, want)
					}
				}
			}
		})
	}
}

func TestPreferenceRecall_ZeroWeightDisables(t *testing.T) {
	catalog := fakeCatalog{
		{ID: "p1", Category: "clothing", Brand: "Apple", Price: 999.99, Available: true},
		{ID: "p2", Category: "electronics", Brand: "Samsung", Price: 999.99, Available: true},
	}
	prefs := &core.UserPreferences{
		UserID:     "u1",
		Categories: []string{"electronics"},
		Brands:     []string{"Apple"},
	}

	// 设置了 category 后，brand 的 0 是有效配置：关闭品牌维度
	r := &PreferenceRecall{Catalog: catalog, CategoryWeight: 1.0}
	rctx := &core.RecommendContext{UserID: "u1", Preferences: prefs}

	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}

	// p1 只有品牌命中，权重被关掉后得 0 分被丢弃；p2 类目命中得满分
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("got %v, want only p2 (brand dimension disabled)", items)
	}
	if diff := items[0].Score - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("p2 score = %f, want 1.0", items[0].Score)
	}
}

func TestPreferenceRecall_PriceDecay(t *testing.T) {
	pr := core.PriceRange{Min: 100, Max: 200} // 宽度 100，2 倍宽度 = 200

	tests := []struct {
		price float64
		want  float64
	}{
		{150, 1.0},   // 区间内
		{100, 1.0},   // 边界
		{250, 0.75},  // 超出 50 → 1 - 50/200
		{300, 0.5},   // 超出 100
		{400, 0.0},   // 超出 200，正好归零
		{500, 0.0},   // 完全超出
		{50, 0.75},   // 低于下界同样衰减
	}

	for _, tt := range tests {
		got := priceFit(tt.price, pr)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("priceFit(%v) = %f, want %f", tt.price, got, tt.want)
		}
	}
}

func TestPreferenceRecall_Deterministic(t *testing.T) {
	catalog := fakeCatalog{
		{ID: "p2", Category: "electronics", Brand: "Apple", Price: 100, Available: true},
		{ID: "p1", Category: "electronics", Brand: "Apple", Price: 100, Available: true},
	}
	prefs := &core.UserPreferences{
		UserID:     "u1",
		Categories: []string{"electronics"},
		Brands:     []string{"Apple"},
		PriceRange: core.PriceRange{Min: 50, Max: 150},
	}

	r := &PreferenceRecall{Catalog: catalog}
	var prev []string
	for i := 0; i < 5; i++ {
		items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u1", Preferences: prefs})
		if err != nil {
			t.Fatalf("Recall() error: %v", err)
		}
		ids := []string{items[0].ID, items[1].ID}
		// 同分按商品 ID 升序
		if ids[0] != "p1" || ids[1] != "p2" {
			t.Fatalf("tie-break order = %v, want [p1 p2]", ids)
		}
		if prev != nil && !reflect.DeepEqual(prev, ids) {
			t.Fatalf("run %d produced different order: %v vs %v", i, ids, prev)
		}
		prev = ids
	}
}

func TestPreferenceRecall_ExcludesSeen(t *testing.T) {
	catalog := fakeCatalog{
		{ID: "p1", Category: "electronics", Price: 100, Available: true},
		{ID: "p2", Category: "electronics", Price: 100, Available: true},
	}
	prefs := &core.UserPreferences{UserID: "u1", Categories: []string{"electronics"}}

	r := &PreferenceRecall{Catalog: catalog}
	rctx := &core.RecommendContext{
		UserID:      "u1",
		Preferences: prefs,
		SeenSet:     map[string]struct{}{"p1": {}},
	}

	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("expected only p2, got %v", items)
	}
}
