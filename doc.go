// Package recommend 是个人购物应用的推荐子系统核心。
//
// 设计要点：
// - Pipeline-first: 生成逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: 算法/置信/解释文案全链路以 label 透传
// - 依赖显式注入: 偏好查询、商品目录、交互日志、推荐存储均为构造参数
package recommend

import "github.com/vibeshop/recommend/pipeline"

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
