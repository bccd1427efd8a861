// Package interaction 实现追加式的用户↔商品交互日志。
// 交互记录创建后不可变：只允许追加与删除，不允许修改类型。
package interaction

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/vibeshop/recommend/core"
)

// 热度统计的行为权重：正反馈沿用召回权重，浏览计一个弱信号，dislike 不计。
const viewPopularityWeight = 0.1

// Log 是内存实现的交互日志。
//
// 版本号每次追加/删除递增，作为邻居相似度缓存的失效依据。
// 配置了 Hot 时，每条交互会同步累加到热度有序集合，
// 供 recall.PopularityRecall 走生产路径读取。
type Log struct {
	mu      sync.RWMutex
	records []*core.Interaction
	byUser  map[string][]*core.Interaction
	version uint64
	nextID  uint64

	// Hot / HotKey 可选：交互计数镜像到的有序集合。
	Hot    core.KeyValueStore
	HotKey string
}

func NewLog() *Log {
	return &Log{
		byUser: make(map[string][]*core.Interaction),
	}
}

// Record 追加一条交互。校验失败返回 VALIDATION 错误，不做部分应用。
func (l *Log) Record(ctx context.Context, in *core.Interaction) (*core.Interaction, error) {
	if in == nil {
		return nil, core.NewDomainError(core.ModuleInteraction, core.ErrorCodeValidation, "interaction: record is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.nextID++
	stored := *in
	if stored.ID == "" {
		stored.ID = "itx-" + strconv.FormatUint(l.nextID, 10)
	}
	if stored.OccurredAt.IsZero() {
		stored.OccurredAt = time.Now()
	}
	l.records = append(l.records, &stored)
	l.byUser[stored.UserID] = append(l.byUser[stored.UserID], &stored)
	l.version++
	l.mu.Unlock()

	// 热度镜像失败不影响日志写入，热度召回有日志现算兜底
	if l.Hot != nil && l.HotKey != "" {
		if w := popularityWeight(stored.Type); w > 0 {
			_ = l.Hot.ZIncrBy(ctx, l.HotKey, w, stored.ProductID)
		}
	}

	out := stored
	return &out, nil
}

// Delete 删除一条交互（按 ID）。交互只支持创建与删除，没有更新。
func (l *Log) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.records {
		if rec.ID != id {
			continue
		}
		l.records = append(l.records[:i], l.records[i+1:]...)
		userRecs := l.byUser[rec.UserID]
		for j, ur := range userRecs {
			if ur.ID == id {
				l.byUser[rec.UserID] = append(userRecs[:j], userRecs[j+1:]...)
				break
			}
		}
		l.version++
		return nil
	}
	return core.NewDomainError(core.ModuleInteraction, core.ErrorCodeNotFound, "interaction: record not found")
}

// PositiveSet 返回用户的正反馈商品集合（like/purchase）。
func (l *Log) PositiveSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[string]struct{})
	for _, rec := range l.byUser[userID] {
		if rec.Type.Positive() {
			set[rec.ProductID] = struct{}{}
		}
	}
	return set, nil
}

// AllPositiveWeights 返回全量用户的正反馈商品及权重。
// 同一商品出现多种正反馈时取最大权重（purchase 覆盖 like）。
func (l *Log) AllPositiveWeights(ctx context.Context) (map[string]map[string]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make(map[string]map[string]float64, len(l.byUser))
	for userID, recs := range l.byUser {
		for _, rec := range recs {
			w := rec.Type.PositiveWeight()
			if w == 0 {
				continue
			}
			if all[userID] == nil {
				all[userID] = make(map[string]float64)
			}
			if w > all[userID][rec.ProductID] {
				all[userID][rec.ProductID] = w
			}
		}
	}
	return all, nil
}

// SeenSet 返回用户交互过的全部商品集合（任意行为类型）。
func (l *Log) SeenSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[string]struct{})
	for _, rec := range l.byUser[userID] {
		set[rec.ProductID] = struct{}{}
	}
	return set, nil
}

// PopularityCounts 返回时间窗口内的全局加权交互计数。
func (l *Log) PopularityCounts(ctx context.Context, window time.Duration) (map[string]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	counts := make(map[string]float64)
	for _, rec := range l.records {
		if rec.OccurredAt.Before(cutoff) {
			continue
		}
		if w := popularityWeight(rec.Type); w > 0 {
			counts[rec.ProductID] += w
		}
	}
	return counts, nil
}

// Version 返回日志快照版本号。
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

func popularityWeight(t core.InteractionType) float64 {
	if t == core.InteractionView {
		return viewPopularityWeight
	}
	return t.PositiveWeight()
}

// 确保 Log 实现了 InteractionLog 接口
var _ core.InteractionLog = (*Log)(nil)
