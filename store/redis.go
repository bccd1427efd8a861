package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibeshop/recommend/core"
)

// Redis key 布局：
//   rec:{userID}        hash  field=productID value=JSON(Recommendation)
//   rec:expiry          zset  member=userID   score=批次过期时间（unix 秒）
// 批次替换通过 TxPipeline（MULTI/EXEC）完成：DEL + HSET + ZADD 原子提交，
// 读者要么看到旧批次，要么看到新批次。

// RedisStore 是 Redis 实现的推荐存储，生产环境常用。
// 同时实现 KeyValueStore，热度有序集合等共享数据也走同一个连接。
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func batchKey(userID string) string { return "rec:" + userID }

const expiryIndexKey = "rec:expiry"

// UpsertBatch 以 TxPipeline 原子替换用户的推荐批次，并更新过期索引。
func (r *RedisStore) UpsertBatch(ctx context.Context, userID string, batch []*core.Recommendation) error {
	if userID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: userID is required")
	}

	fields := make(map[string]any, len(batch))
	var expiresAt time.Time
	for _, rec := range batch {
		if rec == nil || rec.UserID != userID {
			return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: batch contains row for another user")
		}
		if !rec.ExpiresAt.After(rec.CreatedAt) {
			return core.NewDomainError(core.ModuleStore, core.ErrorCodeValidation, "store: expiresAt must follow createdAt")
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		fields[rec.ProductID] = data
		if rec.ExpiresAt.After(expiresAt) {
			expiresAt = rec.ExpiresAt
		}
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, batchKey(userID))
	if len(fields) > 0 {
		pipe.HSet(ctx, batchKey(userID), fields)
		pipe.ZAdd(ctx, expiryIndexKey, redis.Z{
			Score:  float64(expiresAt.Unix()),
			Member: userID,
		})
	} else {
		pipe.ZRem(ctx, expiryIndexKey, userID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetScore(ctx context.Context, userID, productID string) (float64, bool, error) {
	data, err := r.client.HGet(ctx, batchKey(userID), productID).Bytes()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var rec core.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, err
	}
	if rec.Expired(time.Now()) {
		return 0, false, nil
	}
	return rec.Score, true, nil
}

// FindExpired 从过期索引读取批次已到期的用户。
func (r *RedisStore) FindExpired(ctx context.Context, now time.Time, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	return r.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(batchSize),
	}).Result()
}

func (r *RedisStore) Stats(ctx context.Context, userID string) (*core.RecommendationStats, error) {
	vals, err := r.client.HGetAll(ctx, batchKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	stats := &core.RecommendationStats{
		Algorithms: make(map[core.Algorithm]int),
	}
	var sum float64
	for _, v := range vals {
		var rec core.Recommendation
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		stats.Total++
		sum += rec.Score
		stats.Algorithms[rec.Algorithm]++
	}
	if stats.Total > 0 {
		stats.AverageScore = sum / float64(stats.Total)
	}
	return stats, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// KeyValueStore 实现

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrStoreNotFound
	}
	return val, err
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = time.Duration(ttl[0]) * time.Second
	}
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisStore) ZIncrBy(ctx context.Context, key string, delta float64, member string) error {
	return r.client.ZIncrBy(ctx, key, delta, member).Err()
}

func (r *RedisStore) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]core.ZMember, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.ZMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, core.ZMember{Member: member, Score: z.Score})
	}
	return out, nil
}

var (
	_ core.RecommendationStore = (*RedisStore)(nil)
	_ core.KeyValueStore       = (*RedisStore)(nil)
)
