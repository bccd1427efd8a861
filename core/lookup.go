package core

import (
	"context"
	"time"
)

// 外部协作方契约。注册、鉴权、目录 CRUD 等由外围应用负责，
// 推荐核心只依赖这里的只读（交互日志除外）接口，并通过构造函数显式注入。

// PreferenceLookup 获取用户声明式偏好。
// 用户不存在时返回 NOT_FOUND 错误（而不是空偏好）。
type PreferenceLookup interface {
	// Get 返回用户偏好；用户不存在返回 NOT_FOUND。
	Get(ctx context.Context, userID string) (*UserPreferences, error)
}

// ProductCatalog 是商品目录的只读视图。
type ProductCatalog interface {
	// ListAvailable 返回所有在售商品，排除 excluding 中的商品 ID。
	ListAvailable(ctx context.Context, excluding map[string]struct{}) ([]*Product, error)

	// Get 返回单个商品；不存在返回 NOT_FOUND。
	Get(ctx context.Context, productID string) (*Product, error)
}

// InteractionLog 是追加式交互日志的访问接口。
// 交互记录由日志边界独占持有，对推荐核心是只追加的输入，这里绝不修改。
type InteractionLog interface {
	// Record 追加一条交互；校验失败返回 VALIDATION 错误，不做部分应用。
	Record(ctx context.Context, in *Interaction) (*Interaction, error)

	// PositiveSet 返回用户的正反馈商品集合（like/purchase）。
	PositiveSet(ctx context.Context, userID string) (map[string]struct{}, error)

	// AllPositiveWeights 返回全量用户的正反馈商品及权重
	// （purchase=1.0, like=0.6），协同召回的邻居来源；
	// 权重 map 的 key 集合即正反馈集合。
	AllPositiveWeights(ctx context.Context) (map[string]map[string]float64, error)

	// SeenSet 返回用户交互过的全部商品集合（任意行为类型）。
	SeenSet(ctx context.Context, userID string) (map[string]struct{}, error)

	// PopularityCounts 返回时间窗口内全局加权交互计数（热度回退信号）。
	PopularityCounts(ctx context.Context, window time.Duration) (map[string]float64, error)

	// Version 返回日志快照版本号，每次追加递增。
	// 邻居相似度缓存以此为失效依据，避免隐式全局状态。
	Version() uint64
}
