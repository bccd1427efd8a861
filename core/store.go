package core

import (
	"context"
	"time"
)

// RecommendationStore 是推荐结果存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 推荐行只能通过 UpsertBatch 写入，Store 是唯一可变共享资源
//
// 实现：
//   - store.MemoryStore 实现此接口（测试/开发/原型）
//   - store.RedisStore 实现此接口（生产）
type RecommendationStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// UpsertBatch 以用户为粒度原子替换推荐批次：
	// 同一用户的一次生成要么全部写入，要么一条不写；
	// 旧批次被整体取代，后续读取只能看到新批次。
	UpsertBatch(ctx context.Context, userID string, batch []*Recommendation) error

	// GetScore 读取当前未过期的推荐分数。
	// 不存在或已过期时返回 (0, false)，由调用方决定是否按需重新生成。
	GetScore(ctx context.Context, userID, productID string) (float64, bool, error)

	// FindExpired 分页返回存在过期推荐的用户 ID，供刷新扫描使用。
	FindExpired(ctx context.Context, now time.Time, batchSize int) ([]string, error)

	// Stats 返回用户当前批次的统计信息。
	Stats(ctx context.Context, userID string) (*RecommendationStats, error)

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是通用 KV 存储接口，供热度召回与规则过滤等读取共享数据。
//
// 扩展功能：
//   - 有序集合（SortedSet）：用于热度排序（全局加权交互计数）
//   - 普通 KV：用于黑名单、快照版本等
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// ZAdd 向有序集合添加成员（用于热度排序）
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZIncrBy 对有序集合成员的分数做累加（交互计数）
	ZIncrBy(ctx context.Context, key string, delta float64, member string) error

	// ZRangeWithScores 按分数降序获取有序集合成员及分数（用于 TopN 热度召回）
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error)
}

// ZMember 是有序集合中的一个成员。
type ZMember struct {
	Member string
	Score  float64
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)
