package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vibeshop/recommend/core"
)

type stubNode struct {
	name string
	kind Kind
	fn   func(items []*core.Item) ([]*core.Item, error)
}

func (n *stubNode) Name() string { return n.name }
func (n *stubNode) Kind() Kind   { return n.kind }
func (n *stubNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.fn(items)
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{
		Nodes: []Node{
			&stubNode{name: "gen", kind: KindRecall, fn: func(_ []*core.Item) ([]*core.Item, error) {
				return []*core.Item{core.NewItem("p1"), core.NewItem("p2")}, nil
			}},
			&stubNode{name: "drop", kind: KindFilter, fn: func(items []*core.Item) ([]*core.Item, error) {
				return items[:1], nil
			}},
		},
	}

	out, err := p.Run(context.Background(), &core.RecommendContext{UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p1" {
		t.Fatalf("Run() = %v, want [p1]", out)
	}
}

func TestPipeline_RunAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	var reached bool
	p := &Pipeline{
		Nodes: []Node{
			&stubNode{name: "fail", kind: KindRecall, fn: func(_ []*core.Item) ([]*core.Item, error) {
				return nil, boom
			}},
			&stubNode{name: "after", kind: KindFilter, fn: func(items []*core.Item) ([]*core.Item, error) {
				reached = true
				return items, nil
			}},
		},
	}

	if _, err := p.Run(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if reached {
		t.Error("downstream node ran after failure")
	}
}

func TestConfig_LoadAndBuild(t *testing.T) {
	yamlSrc := `
pipeline:
  name: homepage
  nodes:
    - type: stub.gen
      config:
        count: 3
    - type: stub.keep
      config: {}
`
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(yamlSrc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error: %v", err)
	}
	if cfg.Pipeline.Name != "homepage" || len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("parsed config = %+v", cfg.Pipeline)
	}

	factory := NewNodeFactory()
	factory.Register("stub.gen", func(c map[string]any) (Node, error) {
		count, _ := c["count"].(int)
		return &stubNode{name: "stub.gen", kind: KindRecall, fn: func(_ []*core.Item) ([]*core.Item, error) {
			out := make([]*core.Item, count)
			for i := range out {
				out[i] = core.NewItem(string(rune('a' + i)))
			}
			return out, nil
		}}, nil
	})
	factory.Register("stub.keep", func(map[string]any) (Node, error) {
		return &stubNode{name: "stub.keep", kind: KindFilter, fn: func(items []*core.Item) ([]*core.Item, error) {
			return items, nil
		}}, nil
	})

	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatalf("BuildPipeline() error: %v", err)
	}
	out, err := p.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Run() produced %d items, want 3", len(out))
	}
}

func TestConfig_BuildUnknownType(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.Nodes = []NodeConfig{{Type: "does.not.exist"}}
	if _, err := cfg.BuildPipeline(NewNodeFactory()); err == nil {
		t.Fatal("expected error for unregistered node type")
	}
}
