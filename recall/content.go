package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pkg/utils"
)

// 各匹配维度的默认权重，总和为 1，保证加权分天然落在 [0,1]。
// 权重是合理的默认打分策略而非业务硬约束，可按字段覆盖。
const (
	DefaultCategoryWeight = 0.35
	DefaultBrandWeight    = 0.25
	DefaultPriceWeight    = 0.25
	DefaultStyleWeight    = 0.15
)

// PreferenceRecall 是基于内容的召回源（Content-Based Recommendation）。
//
// 核心思想："用户声明了自己喜欢什么，推荐与声明匹配的商品"
//
// 算法流程：
//  1. 候选商品 = 在售且用户未交互过的商品
//  2. 逐维度匹配：类目 / 品牌 / 价格 / 风格
//  3. 加权求和得到 [0,1] 匹配分，零分候选丢弃
//
// 空偏好（无类目、无品牌、无风格、价格区间退化）返回空列表，
// 这是显式的冷启动信号，由上层回退到热度召回。
type PreferenceRecall struct {
	Catalog core.ProductCatalog

	// CategoryWeight / BrandWeight / PriceWeight / StyleWeight
	// 全部为 0 时使用默认权重；设置了任意一个后，
	// 单维度的 0 表示关闭该维度。
	CategoryWeight float64
	BrandWeight    float64
	PriceWeight    float64
	StyleWeight    float64
}

func (r *PreferenceRecall) Name() string {
	return "recall.content"
}

func (r *PreferenceRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Catalog == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	prefs := rctx.Preferences
	if prefs.Empty() {
		return nil, nil
	}

	// 候选集：在售商品，排除用户已交互过的
	candidates, err := r.Catalog.ListAvailable(ctx, rctx.SeenSet)
	if err != nil {
		return nil, err
	}

	categories := toSet(prefs.Categories)
	brands := toSet(prefs.Brands)
	styles := toSet(prefs.Styles)

	// 四个权重全零视为未配置，整组取默认；
	// 只要设置了任意一个，单维度的 0 就是有效配置（关闭该维度）。
	wCategory, wBrand, wPrice, wStyle := r.CategoryWeight, r.BrandWeight, r.PriceWeight, r.StyleWeight
	if wCategory == 0 && wBrand == 0 && wPrice == 0 && wStyle == 0 {
		wCategory, wBrand, wPrice, wStyle =
			DefaultCategoryWeight, DefaultBrandWeight, DefaultPriceWeight, DefaultStyleWeight
	}

	type scoredProduct struct {
		product *core.Product
		score   float64
		reason  string
	}
	scores := make([]scoredProduct, 0, len(candidates))

	for _, p := range candidates {
		if p == nil || !p.Available {
			continue
		}

		var score float64
		reasons := make([]string, 0, 4)

		if _, ok := categories[p.Category]; ok {
			score += wCategory
			reasons = append(reasons, "category "+p.Category)
		}
		if _, ok := brands[p.Brand]; ok {
			score += wBrand
			reasons = append(reasons, "brand "+p.Brand)
		}
		if fit := priceFit(p.Price, prefs.PriceRange); fit > 0 {
			score += wPrice * fit
			if fit == 1 {
				reasons = append(reasons, "price in budget")
			} else {
				reasons = append(reasons, "price near budget")
			}
		}
		if p.Style != "" {
			if _, ok := styles[p.Style]; ok {
				score += wStyle
				reasons = append(reasons, "style "+p.Style)
			}
		}

		if score <= 0 {
			continue
		}
		scores = append(scores, scoredProduct{
			product: p,
			score:   score,
			reason:  strings.Join(reasons, ", "),
		})
	}

	// 分数降序，同分按商品 ID 升序，保证重复运行输出一致
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].product.ID < scores[j].product.ID
	})

	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		it := core.NewItem(s.product.ID)
		it.Score = s.score
		it.Meta["category"] = s.product.Category
		it.Meta["price"] = s.product.Price
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		it.PutLabel("algorithm", utils.Label{Value: string(core.AlgorithmContentBased), Source: "recall"})
		it.PutLabel("reason", utils.Label{Value: s.reason, Source: "recall"})
		out = append(out, it)
	}

	return out, nil
}

// priceFit 计算价格适配度：区间内为 1，区间外线性衰减，
// 超出任一边界 2 倍区间宽度时归零。
func priceFit(price float64, pr core.PriceRange) float64 {
	if pr.Degenerate() {
		return 0
	}
	if pr.Contains(price) {
		return 1
	}

	width := pr.Width()
	if width <= 0 {
		// 退化为点区间：区间外一律不适配
		return 0
	}

	var overshoot float64
	if price < pr.Min {
		overshoot = pr.Min - price
	} else {
		overshoot = price - pr.Max
	}

	fit := 1 - overshoot/(2*width)
	if fit < 0 {
		return 0
	}
	return fit
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// 确保 PreferenceRecall 实现了 Source 接口
var _ Source = (*PreferenceRecall)(nil)
