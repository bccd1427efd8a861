package recall

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vibeshop/recommend/core"
	"github.com/vibeshop/recommend/pipeline"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 支持每源超时与并发上限。
//
// 合并采用 union：同一商品可以同时出现在多个来源的结果中，
// 由下游的 Hybrid 节点按来源分组合并成单条推荐。
// 任一来源的 I/O 错误会中止整次生成（外部读失败 → 本轮放弃，用户保持 stale）。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make([][]*core.Item, len(n.Sources))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		idx, s := i, src
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				return err
			}

			mu.Lock()
			results[idx] = items
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// union 合并，按 Sources 顺序拼接，保证输出顺序与完成顺序无关
	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}
	return all, nil
}

// 确保 Fanout 实现了 Node 接口
var _ pipeline.Node = (*Fanout)(nil)
