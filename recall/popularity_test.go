package recall

import (
	"context"
	"testing"
	"time"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/store"
)

func TestPopularityRecall_FromLog(t *testing.T) {
	log := seedLog(t, []*core.Interaction{
		{UserID: "u1", ProductID: "p1", Type: core.InteractionPurchase}, // 1.0
		{UserID: "u2", ProductID: "p1", Type: core.InteractionView},     // +0.1
		{UserID: "u3", ProductID: "p2", Type: core.InteractionLike},     // 0.6
		{UserID: "u4", ProductID: "p3", Type: core.InteractionDislike},  // 不计入热度
	})

	r := &PopularityRecall{Log: log}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u9"})
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	// p1 = 1.1（最大）→ 1.0；p2 = 0.6/1.1
	if items[0].ID != "p1" || items[0].Score != 1.0 {
		t.Errorf("top = %s score %f, want p1 score 1.0", items[0].ID, items[0].Score)
	}
	want := 0.6 / 1.1
	if diff := items[1].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("p2 score = %f, want %f", items[1].Score, want)
	}
	if lbl, ok := items[0].GetLabel("algorithm"); !ok || lbl.Value != string(core.AlgorithmPopularity) {
		t.Errorf("algorithm label = %v", lbl.Value)
	}
}

func TestPopularityRecall_Window(t *testing.T) {
	log := seedLog(t, nil)
	old := &core.Interaction{
		UserID:     "u1",
		ProductID:  "p1",
		Type:       core.InteractionPurchase,
		OccurredAt: time.Now().Add(-30 * 24 * time.Hour),
	}
	if _, err := log.Record(context.Background(), old); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if _, err := log.Record(context.Background(), &core.Interaction{
		UserID: "u2", ProductID: "p2", Type: core.InteractionLike,
	}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	r := &PopularityRecall{Log: log, Window: 7 * 24 * time.Hour}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u9"})
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}
	// 30 天前的购买在 7 天窗口之外
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("expected only p2 inside window, got %v", items)
	}
}

func TestPopularityRecall_FromStore(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()

	ctx := context.Background()
	key := PopularityKey("homepage")
	for member, score := range map[string]float64{"p1": 12, "p2": 30, "p3": 6} {
		if err := kv.ZAdd(ctx, key, score, member); err != nil {
			t.Fatalf("ZAdd() error: %v", err)
		}
	}

	r := &PopularityRecall{Store: kv, Key: key}
	items, err := r.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "p2" || items[0].Score != 1.0 {
		t.Errorf("top = %s score %f, want p2 score 1.0", items[0].ID, items[0].Score)
	}
	if items[1].ID != "p1" || items[2].ID != "p3" {
		t.Errorf("order = [%s %s %s]", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestPopularityRecall_ExcludesSeen(t *testing.T) {
	log := seedLog(t, []*core.Interaction{
		{UserID: "u1", ProductID: "p1", Type: core.InteractionPurchase},
		{UserID: "u2", ProductID: "p2", Type: core.InteractionPurchase},
	})

	r := &PopularityRecall{Log: log}
	rctx := &core.RecommendContext{
		UserID:  "u9",
		SeenSet: map[string]struct{}{"p1": {}},
	}
	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("expected only p2, got %v", items)
	}
}

func TestPopularityKey(t *testing.T) {
	if got := PopularityKey(""); got != "hot:products:default" {
		t.Errorf("PopularityKey(\"\") = %s", got)
	}
	if got := PopularityKey("homepage"); got != "hot:products:homepage" {
		t.Errorf("PopularityKey(homepage) = %s", got)
	}
}
