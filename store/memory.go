package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibeshop/recommend/core"
)

// MemoryStore 是内存实现的推荐存储，用于测试/开发/原型。
// 进程重启后数据丢失。
//
// 批次以用户为粒度整体替换：UpsertBatch 在锁内做单次 map 赋值，
// 读者要么看到完整的旧批次，要么看到完整的新批次，不存在混合状态。
// 过期批次保留在存储中等待刷新扫描重算，不做自动清理。
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string][]*core.Recommendation

	// 通用 KV / 有序集合区，供热度召回等共享数据使用，支持 TTL
	kv    map[string]*kvEntry
	zsets map[string]map[string]float64
	clean *time.Ticker
	done  chan struct{}
}

type kvEntry struct {
	value []byte
	ttl   *time.Time
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		batches: make(map[string][]*core.Recommendation),
		kv:      make(map[string]*kvEntry),
		zsets:   make(map[string]map[string]float64),
		clean:   time.NewTicker(10 * time.Second),
		done:    make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

// UpsertBatch 原子替换用户的推荐批次。
func (m *MemoryStore) UpsertBatch(ctx context.Context, userID string, batch []*core.Recommendation) error {
	if userID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: userID is required")
	}
	for _, rec := range batch {
		if rec == nil || rec.UserID != userID {
			return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: batch contains row for another user")
		}
		if !rec.ExpiresAt.After(rec.CreatedAt) {
			return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: expiresAt must follow createdAt")
		}
	}

	// 复制批次，避免调用方后续修改穿透到存储
	copied := make([]*core.Recommendation, len(batch))
	for i, rec := range batch {
		r := *rec
		copied[i] = &r
	}

	m.mu.Lock()
	m.batches[userID] = copied
	m.mu.Unlock()
	return nil
}

// GetScore 返回当前未过期的推荐分数；不存在或已过期返回 (0, false)。
func (m *MemoryStore) GetScore(ctx context.Context, userID, productID string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	for _, rec := range m.batches[userID] {
		if rec.ProductID == productID {
			if rec.Expired(now) {
				return 0, false, nil
			}
			return rec.Score, true, nil
		}
	}
	return 0, false, nil
}

// FindExpired 返回存在过期推荐的用户 ID，按 ID 升序分页。
func (m *MemoryStore) FindExpired(ctx context.Context, now time.Time, batchSize int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if batchSize <= 0 {
		batchSize = 100
	}

	stale := make([]string, 0)
	for userID, batch := range m.batches {
		for _, rec := range batch {
			if rec.Expired(now) {
				stale = append(stale, userID)
				break
			}
		}
	}
	sort.Strings(stale)
	if len(stale) > batchSize {
		stale = stale[:batchSize]
	}
	return stale, nil
}

// Stats 返回用户当前批次的统计信息。
func (m *MemoryStore) Stats(ctx context.Context, userID string) (*core.RecommendationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &core.RecommendationStats{
		Algorithms: make(map[core.Algorithm]int),
	}
	var sum float64
	for _, rec := range m.batches[userID] {
		stats.Total++
		sum += rec.Score
		stats.Algorithms[rec.Algorithm]++
	}
	if stats.Total > 0 {
		stats.AverageScore = sum / float64(stats.Total)
	}
	return stats, nil
}

func (m *MemoryStore) Close() error {
	if m.clean != nil {
		m.clean.Stop()
	}
	close(m.done)
	return nil
}

// KeyValueStore 实现

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.kv[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	if e.ttl != nil && time.Now().After(*e.ttl) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &kvEntry{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		expire := time.Now().Add(time.Duration(ttl[0]) * time.Second)
		e.ttl = &expire
	}
	m.kv[key] = e
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv, key)
	return nil
}

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryStore) ZIncrBy(ctx context.Context, key string, delta float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] += delta
	return nil
}

func (m *MemoryStore) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]core.ZMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok || len(zset) == 0 {
		return nil, nil
	}

	// 按 score 降序、member 升序排序
	members := make([]core.ZMember, 0, len(zset))
	for member, score := range zset {
		members = append(members, core.ZMember{Member: member, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Member < members[j].Member
	})

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return members[start : stop+1], nil
}

// cleanup 周期清理过期的 KV 数据；推荐批次不在清理范围内。
func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.kv {
				if e.ttl != nil && now.After(*e.ttl) {
					delete(m.kv, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

var (
	_ core.RecommendationStore = (*MemoryStore)(nil)
	_ core.KeyValueStore       = (*MemoryStore)(nil)
)
