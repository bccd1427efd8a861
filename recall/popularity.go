package recall

import (
	"context"
	"sort"
	"time"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/utils"
)

// DefaultPopularityWindow 是热度统计的默认时间窗口。
const DefaultPopularityWindow = 7 * 24 * time.Hour

// popularityTopN 是从有序集合读取的热度候选上限。
const popularityTopN = 100

// PopularityRecall 是热度召回源：按时间窗口内的全局加权交互计数打分。
// 冷启动用户（无偏好、无交互）的兜底信号。
//
// 数据来源：
//  - 如果配置了 Store，从有序集合读取热度分（生产路径，由交互日志镜像写入）
//  - 否则从交互日志按窗口现算（内存路径）
//
// 分数按候选中的最大计数归一化到 [0,1]。
type PopularityRecall struct {
	Store core.KeyValueStore
	Key   string // 有序集合 key，例如 "hot:products"

	Log    core.InteractionLog
	Window time.Duration // <=0 时取 DefaultPopularityWindow
}

func (r *PopularityRecall) Name() string {
	return "recall.popularity"
}

func (r *PopularityRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	counts, err := r.counts(ctx)
	if err != nil {
		return nil, err
	}

	// 排除用户已交互过的商品
	if rctx != nil {
		for productID := range counts {
			if rctx.Seen(productID) {
				delete(counts, productID)
			}
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	var max float64
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return nil, nil
	}

	type scoredItem struct {
		productID string
		score     float64
	}
	scored := make([]scoredItem, 0, len(counts))
	for productID, c := range counts {
		scored = append(scored, scoredItem{productID: productID, score: c / max})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].productID < scored[j].productID
	})
	if len(scored) > popularityTopN {
		scored = scored[:popularityTopN]
	}

	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewItem(s.productID)
		it.Score = s.score
		it.PutLabel("recall_source", utils.Label{Value: "popularity", Source: "recall"})
		it.PutLabel("algorithm", utils.Label{Value: string(core.AlgorithmPopularity), Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: "popular with shoppers recently", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// counts 读取加权交互计数：优先走有序集合，否则从日志按窗口现算。
func (r *PopularityRecall) counts(ctx context.Context) (map[string]float64, error) {
	if r.Store != nil && r.Key != "" {
		members, err := r.Store.ZRangeWithScores(ctx, r.Key, 0, popularityTopN-1)
		if err == nil && len(members) > 0 {
			counts := make(map[string]float64, len(members))
			for _, m := range members {
				counts[m.Member] = m.Score
			}
			return counts, nil
		}
		// 有序集合不可用时回退到日志现算
	}

	if r.Log == nil {
		return nil, nil
	}
	window := r.Window
	if window <= 0 {
		window = DefaultPopularityWindow
	}
	return r.Log.PopularityCounts(ctx, window)
}

// PopularityKey 按场景拼出热度有序集合的 key，例如 "hot:products:default"。
func PopularityKey(scene string) string {
	if scene == "" {
		scene = "default"
	}
	return "hot:products:" + scene
}

// 确保 PopularityRecall 实现了 Source 接口
var _ Source = (*PopularityRecall)(nil)
