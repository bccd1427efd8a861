package core

import "time"

// Algorithm 标记一条推荐来自哪条信号链路。
type Algorithm string

const (
	AlgorithmContentBased  Algorithm = "content-based"
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmHybrid        Algorithm = "hybrid"
	AlgorithmPopularity    Algorithm = "popularity"
)

// Confidence 是按分数划分的置信档位。
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ClassifyConfidence 按分数划分置信档位：
// score ≥ 0.7 → high；0.4 ≤ score < 0.7 → medium；其余 → low。
func ClassifyConfidence(score float64) Confidence {
	switch {
	case score >= 0.7:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Recommendation 是一条持久化的推荐结果。
//
// 生命周期：由一次生成运行创建；TTL 到期后在刷新扫描中重算；
// 同一 (userId, productId) 写入新批次时被整体取代。
// 同批次的行共享同一个 BatchID，读者可据此校验批次一致性。
//
// JSON 字段名即外围 API 的事实序列化契约。
type Recommendation struct {
	UserID     string     `json:"userId"`
	ProductID  string     `json:"productId"`
	Score      float64    `json:"score"`
	Algorithm  Algorithm  `json:"algorithm"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	BatchID    string     `json:"batchId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

// Expired 判断推荐是否已过期。
func (r *Recommendation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// RecommendationStats 是单个用户当前批次的统计信息。
type RecommendationStats struct {
	Total        int               `json:"total"`
	AverageScore float64           `json:"averageScore"`
	Algorithms   map[Algorithm]int `json:"algorithmDistribution"`
}
