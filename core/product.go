package core

// Product 是商品目录中的一条商品记录。
// 目录本身由外部服务维护，推荐核心只读；Name 唯一性由目录服务在写入时保证。
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Brand     string  `json:"brand"`
	Price     float64 `json:"price"`
	Style     string  `json:"style,omitempty"` // 可选
	Available bool    `json:"available"`
}

// PriceRange 是用户可接受的价格区间。
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Degenerate 判断价格区间是否退化（未设置或无效），退化区间不参与打分。
func (pr PriceRange) Degenerate() bool {
	return pr.Min == 0 && pr.Max == 0
}

// Contains 判断价格是否落在区间内。
func (pr PriceRange) Contains(price float64) bool {
	return price >= pr.Min && price <= pr.Max
}

// Width 返回区间宽度。
func (pr PriceRange) Width() float64 {
	return pr.Max - pr.Min
}

// MaxPreferenceSetSize 是偏好集合的上限，保证单个商品的打分是 O(1)。
const MaxPreferenceSetSize = 20

// UserPreferences 是用户声明式偏好画像。
//
// 维度          作用
//  Categories   类目匹配（内容召回主信号）
//  Brands       品牌匹配
//  PriceRange   价格适配（区间外线性衰减）
//  Styles       风格匹配（弱信号）
//
// 画像由外部用户服务维护，推荐核心只读。
type UserPreferences struct {
	UserID     string     `json:"userId"`
	Categories []string   `json:"categories"`
	PriceRange PriceRange `json:"priceRange"`
	Brands     []string   `json:"brands"`
	Styles     []string   `json:"stylePreferences"`
}

// Empty 判断偏好是否为空（无类目、无品牌、无风格、价格区间退化）。
// 空偏好是冷启动信号，不是错误。
func (p *UserPreferences) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.Categories) == 0 &&
		len(p.Brands) == 0 &&
		len(p.Styles) == 0 &&
		p.PriceRange.Degenerate()
}

// Validate 校验偏好的边界约束：
// - priceRange.min ≤ priceRange.max 且均 ≥ 0
// - 各集合大小 ≤ MaxPreferenceSetSize
// 校验失败返回 VALIDATION 错误，偏好不会被部分应用。
func (p *UserPreferences) Validate() error {
	if p == nil {
		return nil
	}
	if p.PriceRange.Min < 0 || p.PriceRange.Max < 0 {
		return NewDomainError(ModulePreference, ErrorCodeValidation, "preferences: price range must be non-negative")
	}
	if p.PriceRange.Min > p.PriceRange.Max {
		return NewDomainError(ModulePreference, ErrorCodeValidation, "preferences: price range min exceeds max")
	}
	if len(p.Categories) > MaxPreferenceSetSize ||
		len(p.Brands) > MaxPreferenceSetSize ||
		len(p.Styles) > MaxPreferenceSetSize {
		return NewDomainError(ModulePreference, ErrorCodeValidation, "preferences: preference set exceeds bound")
	}
	return nil
}
