package recall

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/utils"
)

// DefaultTopKNeighbors 是邻居选择的默认 TopK。
const DefaultTopKNeighbors = 20

// NeighborRecall 是基于用户的协同召回源（User-based Collaborative Filtering）。
//
// 核心思想："正反馈集合重叠的用户，兴趣相似"
//
// 算法流程：
//  1. 目标用户 → 正反馈集合（like/purchase 的商品）
//  2. 对每个正反馈集合非空的其他用户，计算 Jaccard 相似度
//     J(A,B) = |A∩B| / |A∪B|，丢弃相似度 ≤ 0 的用户
//  3. 取 TopK 最相似邻居（默认 K=20）
//  4. 对邻居正反馈中目标用户未交互过的商品，
//     按 score[p] = Σ(相似度 × 行为权重) 累加（purchase=1.0, like=0.6）
//  5. 按候选中的最大累加值归一化到 [0,1]；最大值为 0 时返回空列表
//     （信号不足，不是错误）
//
// 确定性要求：邻居选择与聚合都是对集合求和，与遍历顺序无关；
// 排序用相似度/分数 + ID 双键，相同输入必产出相同输出。
type NeighborRecall struct {
	Log core.InteractionLog

	// TopKNeighbors 考虑的 TopK 相似邻居数，<=0 时取 DefaultTopKNeighbors
	TopKNeighbors int

	// Cache 是可选的邻居快照缓存（见 NeighborCache），
	// 以交互日志版本号为失效依据，通过构造显式注入而非隐式全局状态。
	Cache *NeighborCache
}

func (r *NeighborRecall) Name() string {
	return "recall.neighbor"
}

// neighbor 是一个已算好相似度的邻居。
type neighbor struct {
	userID     string
	similarity float64
}

func (r *NeighborRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Log == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	// 目标用户的正反馈集合
	targetSet := rctx.PositiveSet
	if targetSet == nil {
		var err error
		targetSet, err = r.Log.PositiveSet(ctx, rctx.UserID)
		if err != nil {
			return nil, err
		}
	}
	if len(targetSet) == 0 {
		return nil, nil
	}

	allWeights, err := r.Log.AllPositiveWeights(ctx)
	if err != nil {
		return nil, err
	}

	// 邻居选择：优先命中快照缓存
	version := r.Log.Version()
	var neighbors []neighbor
	if r.Cache != nil {
		neighbors, _ = r.Cache.Get(rctx.UserID, version)
	}
	if neighbors == nil {
		neighbors = selectNeighbors(rctx.UserID, targetSet, allWeights, r.topK())
		if r.Cache != nil {
			r.Cache.Put(rctx.UserID, version, neighbors)
		}
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	// 聚合：score[p] = Σ(相似度 × 行为权重)，对集合求和，与顺序无关
	itemScores := make(map[string]float64)
	itemSupport := make(map[string]int) // 贡献该商品的邻居数，用于 reason 文案
	for _, nb := range neighbors {
		for productID, weight := range allWeights[nb.userID] {
			if _, seen := targetSet[productID]; seen {
				continue
			}
			if rctx.Seen(productID) {
				continue
			}
			itemScores[productID] += nb.similarity * weight
			itemSupport[productID]++
		}
	}

	// 最大值归一化
	var max float64
	for _, s := range itemScores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return nil, nil
	}

	type scoredItem struct {
		productID string
		score     float64
	}
	scored := make([]scoredItem, 0, len(itemScores))
	for productID, s := range itemScores {
		scored = append(scored, scoredItem{productID: productID, score: s / max})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].productID < scored[j].productID
	})

	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewItem(s.productID)
		it.Score = s.score
		it.PutLabel("recall_source", utils.Label{Value: "neighbor", Source: "recall"})
		it.PutLabel("algorithm", utils.Label{Value: string(core.AlgorithmCollaborative), Source: "recall"})
		it.PutLabel("reason", utils.Label{
			Value:  "liked by " + strconv.Itoa(itemSupport[s.productID]) + " similar users",
			Source: "recall",
		})
		out = append(out, it)
	}

	return out, nil
}

func (r *NeighborRecall) topK() int {
	if r.TopKNeighbors > 0 {
		return r.TopKNeighbors
	}
	return DefaultTopKNeighbors
}

// selectNeighbors 计算目标用户与全量用户的 Jaccard 相似度并取 TopK。
// 排序键为 (相似度降序, 用户 ID 升序)，保证确定性。
func selectNeighbors(
	targetUserID string,
	targetSet map[string]struct{},
	allWeights map[string]map[string]float64,
	topK int,
) []neighbor {
	neighbors := make([]neighbor, 0, len(allWeights))
	for userID, weights := range allWeights {
		if userID == targetUserID || len(weights) == 0 {
			continue
		}
		sim := jaccard(targetSet, weights)
		if sim <= 0 {
			continue
		}
		neighbors = append(neighbors, neighbor{userID: userID, similarity: sim})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors
}

// jaccard 计算 |A∩B| / |A∪B|；B 以权重 map 的 key 集合表示。
func jaccard(a map[string]struct{}, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for p := range a {
		if _, ok := b[p]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// NeighborCache 是邻居选择结果的快照缓存。
// 以交互日志的版本号为 key 的一部分：版本变化即失效，
// 避免“全局可变相似度缓存”带来的陈旧读。
type NeighborCache struct {
	mu      sync.RWMutex
	entries map[string]neighborEntry
}

type neighborEntry struct {
	version   uint64
	neighbors []neighbor
}

func NewNeighborCache() *NeighborCache {
	return &NeighborCache{entries: make(map[string]neighborEntry)}
}

// Get 返回缓存的邻居列表；版本不匹配视为未命中。
func (c *NeighborCache) Get(userID string, version uint64) ([]neighbor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok || e.version != version {
		return nil, false
	}
	return e.neighbors, true
}

// Put 写入邻居列表，覆盖旧版本。
func (c *NeighborCache) Put(userID string, version uint64, neighbors []neighbor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = neighborEntry{version: version, neighbors: neighbors}
}

// Invalidate 清空某个用户的缓存。
func (c *NeighborCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// 确保 NeighborRecall 实现了 Source 接口
var _ Source = (*NeighborRecall)(nil)
