package core

import "time"

// InteractionType 是用户行为类型的闭合枚举。
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionDislike  InteractionType = "dislike"
	InteractionPurchase InteractionType = "purchase"
)

// Valid 判断行为类型是否在闭合枚举内。
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionLike, InteractionDislike, InteractionPurchase:
		return true
	}
	return false
}

// Positive 判断行为是否为正反馈（like / purchase），正反馈驱动协同召回。
func (t InteractionType) Positive() bool {
	return t == InteractionLike || t == InteractionPurchase
}

// PositiveWeight 返回正反馈行为的权重：purchase=1.0，like=0.6，其余为 0。
func (t InteractionType) PositiveWeight() float64 {
	switch t {
	case InteractionPurchase:
		return 1.0
	case InteractionLike:
		return 0.6
	}
	return 0
}

// 元数据值类型标记。
const (
	MetaKindStr  = "str"
	MetaKindNum  = "num"
	MetaKindBool = "bool"
)

// MetaValue 是交互元数据的受限值类型。
// 元数据在源头是开放的 key-value，这里收敛为有界、带类型的 map，
// 保留灵活性的同时避免无类型 blob。
type MetaValue struct {
	Str  string  `json:"str,omitempty"`
	Num  float64 `json:"num,omitempty"`
	Bool bool    `json:"bool,omitempty"`
	Kind string  `json:"kind"` // MetaKindStr / MetaKindNum / MetaKindBool
}

// ValidKind 判断类型标记是否在闭合枚举内。
func (v MetaValue) ValidKind() bool {
	switch v.Kind {
	case MetaKindStr, MetaKindNum, MetaKindBool:
		return true
	}
	return false
}

// MaxMetadataKeys 是单条交互元数据的 key 数上限。
const MaxMetadataKeys = 16

// Interaction 是一条用户↔商品交互记录。
// 创建后不可变：只允许创建与删除，不允许修改类型。
type Interaction struct {
	ID         string               `json:"id"`
	UserID     string               `json:"userId"`
	ProductID  string               `json:"productId"`
	Type       InteractionType      `json:"type"`
	Metadata   map[string]MetaValue `json:"metadata,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// Validate 校验交互记录的边界约束。
// 类型必须在闭合枚举内，元数据有界；校验失败的记录不会被部分应用。
func (in *Interaction) Validate() error {
	if in.UserID == "" || in.ProductID == "" {
		return NewDomainError(ModuleInteraction, ErrorCodeValidation, "interaction: userId and productId are required")
	}
	if !in.Type.Valid() {
		return NewDomainError(ModuleInteraction, ErrorCodeValidation, "interaction: unknown type "+string(in.Type))
	}
	if len(in.Metadata) > MaxMetadataKeys {
		return NewDomainError(ModuleInteraction, ErrorCodeValidation, "interaction: metadata exceeds bound")
	}
	for key, v := range in.Metadata {
		if !v.ValidKind() {
			return NewDomainError(ModuleInteraction, ErrorCodeValidation,
				"interaction: metadata "+key+" has unknown kind "+v.Kind)
		}
	}
	return nil
}
