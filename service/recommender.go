// Package service 是推荐核心的编排层（对外入口）。
//
// 状态机（按用户）：fresh（有未过期推荐）→ stale（全部过期）→
// regenerating（生成中）→ fresh。stale → regenerating 由 singleflight
// 保证同一用户同时最多一次生成；生成失败时用户保持 stale，
// 错误上报给调用方，由下一轮刷新扫描自然重试。
package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/filter"
	"github.com/vibeshop/recommend/pipeline"
	"github.com/vibeshop/recommend/rank"
	"github.com/vibeshop/recommend/recall"
	"github.com/vibeshop/recommend/rerank"
)

// defaultRefreshConcurrency 是刷新扫描的默认并发度。
const defaultRefreshConcurrency = 4

// Recommender 是推荐子系统的公共入口：生成、持久化、查分、统计、刷新。
// 所有协作方通过构造函数显式注入，不持有跨请求的隐式全局状态
// （Store 是唯一可变共享资源，邻居缓存以日志版本号失效）。
type Recommender struct {
	prefs   core.PreferenceLookup
	catalog core.ProductCatalog
	log     core.InteractionLog
	store   core.RecommendationStore
	cfg     core.RecommendConfig
	logger  *zap.Logger

	content    *recall.PreferenceRecall
	neighbors  *recall.NeighborRecall
	popularity *recall.PopularityRecall
	filters    []filter.Filter

	hybridContentWeight float64
	hybridCollabWeight  float64

	// group 把同一用户的并发生成收敛为一次执行（互斥 + 去重）
	group singleflight.Group

	refreshConcurrency int
}

// Option 配置 Recommender 的可选依赖。
type Option func(*Recommender)

// WithConfig 覆盖默认配置（TTL、邻居 K、超时等）。
func WithConfig(cfg core.RecommendConfig) Option {
	return func(r *Recommender) { r.cfg = cfg }
}

// WithLogger 注入 zap 日志器；默认不输出。
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recommender) { r.logger = logger }
}

// WithNeighborCache 注入邻居相似度快照缓存。
func WithNeighborCache(cache *recall.NeighborCache) Option {
	return func(r *Recommender) { r.neighbors.Cache = cache }
}

// WithHotStore 让热度召回走有序集合（生产路径），key 按场景生成。
func WithHotStore(kv core.KeyValueStore, key string) Option {
	return func(r *Recommender) {
		r.popularity.Store = kv
		r.popularity.Key = key
	}
}

// WithScoringWeights 覆盖内容召回的维度权重
// （全零视为未配置，沿用 recall 包默认）。
func WithScoringWeights(category, brand, price, style float64) Option {
	return func(r *Recommender) {
		r.content.CategoryWeight = category
		r.content.BrandWeight = brand
		r.content.PriceWeight = price
		r.content.StyleWeight = style
	}
}

// WithHybridWeights 覆盖混合排序的两路信号权重
// （全零视为未配置，沿用 rank 包默认）。
func WithHybridWeights(content, collaborative float64) Option {
	return func(r *Recommender) {
		r.hybridContentWeight = content
		r.hybridCollabWeight = collaborative
	}
}

// WithFilters 追加候选过滤器（如 filter.RuleFilter）。
func WithFilters(filters ...filter.Filter) Option {
	return func(r *Recommender) { r.filters = append(r.filters, filters...) }
}

// WithRefreshConcurrency 覆盖刷新扫描的并发度。
func WithRefreshConcurrency(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.refreshConcurrency = n
		}
	}
}

// NewRecommender 构造推荐编排器。
func NewRecommender(
	prefs core.PreferenceLookup,
	catalog core.ProductCatalog,
	log core.InteractionLog,
	store core.RecommendationStore,
	opts ...Option,
) *Recommender {
	r := &Recommender{
		prefs:              prefs,
		catalog:            catalog,
		log:                log,
		store:              store,
		cfg:                &core.DefaultRecommendConfig{},
		logger:             zap.NewNop(),
		refreshConcurrency: defaultRefreshConcurrency,
	}
	r.content = &recall.PreferenceRecall{Catalog: catalog}
	r.neighbors = &recall.NeighborRecall{Log: log}
	r.popularity = &recall.PopularityRecall{Log: log}

	for _, opt := range opts {
		opt(r)
	}

	r.neighbors.TopKNeighbors = r.cfg.DefaultTopKNeighbors()
	r.popularity.Window = r.cfg.DefaultPopularityWindow()
	return r
}

// Generate 为用户生成并持久化一批推荐。
//
// 同一用户的并发调用被收敛为一次执行（按 userID 互斥，保证落库批次
// 不会交叉）；合流的调用方共享胜者的运行结果，返回值按各自的 limit
// 截断，落库的是胜者的完整批次。整次运行受配置超时约束，
// 超时/出错时不提交任何行，用户保持 stale。
// 用户无法通过外部查询解析时返回 NOT_FOUND。
func (r *Recommender) Generate(ctx context.Context, userID string, limit int) ([]*core.Recommendation, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeValidation, "service: userID is required")
	}
	if limit <= 0 {
		limit = r.cfg.DefaultLimit()
	}

	result, err, _ := r.group.Do(userID, func() (any, error) {
		genCtx, cancel := context.WithTimeout(ctx, r.cfg.DefaultTimeout())
		defer cancel()
		return r.generate(genCtx, userID, limit)
	})
	if err != nil {
		r.logger.Warn("generation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	batch := result.([]*core.Recommendation)
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

// generate 是单次生成运行：外部读 → 召回/过滤/混合/截断 → 原子落库。
func (r *Recommender) generate(ctx context.Context, userID string, limit int) ([]*core.Recommendation, error) {
	prefs, err := r.prefs.Get(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, err
		}
		return nil, r.asTransient(core.ModulePreference, err)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	seen, err := r.log.SeenSet(ctx, userID)
	if err != nil {
		return nil, r.asTransient(core.ModuleInteraction, err)
	}
	positive, err := r.log.PositiveSet(ctx, userID)
	if err != nil {
		return nil, r.asTransient(core.ModuleInteraction, err)
	}

	rctx := &core.RecommendContext{
		UserID:      userID,
		Preferences: prefs,
		PositiveSet: positive,
		SeenSet:     seen,
	}

	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Fanout{
				Sources: []recall.Source{r.content, r.neighbors},
				Timeout: r.cfg.DefaultTimeout(),
			},
			&filter.FilterNode{Filters: r.candidateFilters()},
			r.hybridNode(),
			&rerank.TopNNode{N: limit},
		},
	}

	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, r.asTransient(core.ModuleService, err)
	}

	// 两路信号都为空 → 真冷启动，回退到热度召回
	if len(items) == 0 {
		items, err = r.popularityFallback(ctx, rctx, limit)
		if err != nil {
			return nil, err
		}
		r.logger.Info("cold start fallback",
			zap.String("user_id", userID),
			zap.Int("candidates", len(items)),
		)
	}

	batch := r.toBatch(userID, items)

	// 超时/取消时放弃提交，绝不落部分批次
	if err := ctx.Err(); err != nil {
		return nil, r.asTransient(core.ModuleService, err)
	}
	if err := r.store.UpsertBatch(ctx, userID, batch); err != nil {
		return nil, r.asTransient(core.ModuleStore, err)
	}

	r.logger.Info("batch generated",
		zap.String("user_id", userID),
		zap.Int("size", len(batch)),
	)
	return batch, nil
}

func (r *Recommender) candidateFilters() []filter.Filter {
	filters := []filter.Filter{&filter.InteractedFilter{Log: r.log}}
	return append(filters, r.filters...)
}

func (r *Recommender) popularityFallback(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	items, err := r.popularity.Recall(ctx, rctx)
	if err != nil {
		return nil, r.asTransient(core.ModuleService, err)
	}
	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&filter.FilterNode{Filters: r.candidateFilters()},
			r.hybridNode(),
			&rerank.TopNNode{N: limit},
		},
	}
	return p.Run(ctx, rctx, items)
}

func (r *Recommender) hybridNode() *rank.HybridNode {
	return &rank.HybridNode{
		ContentWeight:       r.hybridContentWeight,
		CollaborativeWeight: r.hybridCollabWeight,
	}
}

// toBatch 把 Pipeline 输出转换为可落库的推荐批次。
// 整个批次共享同一 BatchID 与时间戳，读者可据此校验批次一致性。
func (r *Recommender) toBatch(userID string, items []*core.Item) []*core.Recommendation {
	now := time.Now()
	batchID := strconv.FormatInt(now.UnixNano(), 10)
	expiresAt := now.Add(r.cfg.DefaultTTL())

	batch := make([]*core.Recommendation, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		rec := &core.Recommendation{
			UserID:     userID,
			ProductID:  it.ID,
			Score:      clampScore(it.Score),
			Algorithm:  core.AlgorithmPopularity,
			Confidence: core.ClassifyConfidence(it.Score),
			BatchID:    batchID,
			CreatedAt:  now,
			ExpiresAt:  expiresAt,
		}
		if lbl, ok := it.GetLabel("algorithm"); ok {
			rec.Algorithm = core.Algorithm(firstSegment(lbl.Value))
		}
		if lbl, ok := it.GetLabel("confidence"); ok {
			rec.Confidence = core.Confidence(firstSegment(lbl.Value))
		}
		if lbl, ok := it.GetLabel("reason"); ok {
			rec.Reason = lbl.Value
		}
		batch = append(batch, rec)
	}
	return batch
}

// RefreshExpired 扫描过期推荐并重算，返回成功重算的用户数。
//
// 可安全重入：已刷新的用户在新 TTL 到期前不会再次命中 FindExpired，
// 紧接着的第二次调用对它们是 no-op。单个用户失败只记录日志，
// 不阻塞同批次其他用户。
func (r *Recommender) RefreshExpired(ctx context.Context, batchSize int) (int, error) {
	userIDs, err := r.store.FindExpired(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, r.asTransient(core.ModuleStore, err)
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	var refreshed int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.refreshConcurrency)

	results := make([]bool, len(userIDs))
	for i, userID := range userIDs {
		idx, uid := i, userID
		eg.Go(func() error {
			if _, err := r.Generate(egCtx, uid, 0); err != nil {
				// 失败的用户保持 stale，下一轮扫描自然重试
				r.logger.Warn("refresh skipped user",
					zap.String("user_id", uid),
					zap.Error(err),
				)
				return nil
			}
			results[idx] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return int(refreshed), err
	}

	for _, ok := range results {
		if ok {
			refreshed++
		}
	}
	r.logger.Info("refresh sweep done",
		zap.Int("stale", len(userIDs)),
		zap.Int64("refreshed", refreshed),
	)
	return int(refreshed), nil
}

// Score 返回当前未过期的推荐分数。
// 没有当前推荐是合法终态，返回 0 而不是错误。
func (r *Recommender) Score(ctx context.Context, userID, productID string) (float64, error) {
	score, ok, err := r.store.GetScore(ctx, userID, productID)
	if err != nil {
		return 0, r.asTransient(core.ModuleStore, err)
	}
	if !ok {
		return 0, nil
	}
	return score, nil
}

// Stats 返回用户当前批次的统计信息。
func (r *Recommender) Stats(ctx context.Context, userID string) (*core.RecommendationStats, error) {
	stats, err := r.store.Stats(ctx, userID)
	if err != nil {
		return nil, r.asTransient(core.ModuleStore, err)
	}
	return stats, nil
}

// asTransient 把 I/O 层错误翻译为领域错误；已是领域错误的原样保留。
func (r *Recommender) asTransient(module string, err error) error {
	if domainErr := core.GetDomainError(err); domainErr != nil {
		return domainErr
	}
	return core.NewDomainError(module, core.ErrorCodeUnavailable, module+": "+err.Error())
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// firstSegment 取合并标签的第一段（'|' 之前）。
func firstSegment(value string) string {
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			return value[:i]
		}
	}
	return value
}
