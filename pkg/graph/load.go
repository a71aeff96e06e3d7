package graph

import (
	"context"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
)

// EdgeSource supplies persisted graph state. It is implemented by the
// storage layer; traversal components never talk to the database directly.
type EdgeSource interface {
	GraphNodes(ctx context.Context, keys []string) ([]common.GraphNode, error)
	OutboundEdges(ctx context.Context, sources []string) ([]common.GraphEdge, error)
}

// Load hydrates the bounded subgraph reachable from root within maxDepth
// edges into an in-process Graph. The frontier is expanded breadth-first with
// one batched edge query per level, so the work per call is bounded by
// branching factor times depth.
func Load(ctx context.Context, src EdgeSource, root string, maxDepth int) (*Graph, error) {
	g := New()

	rootNodes, err := src.GraphNodes(ctx, []string{root})
	if err != nil {
		return nil, fmt.Errorf("failed to load root node: %w", err)
	}
	for _, n := range rootNodes {
		g.UpsertNode(n)
	}

	seen := map[string]bool{root: true}
	frontier := []string{root}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		edges, err := src.OutboundEdges(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to expand graph frontier: %w", err)
		}

		var next []string
		for _, e := range edges {
			g.UpsertEdge(e)
			if !seen[e.Target] {
				seen[e.Target] = true
				next = append(next, e.Target)
			}
		}

		if len(next) > 0 {
			nodes, err := src.GraphNodes(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("failed to load frontier nodes: %w", err)
			}
			for _, n := range nodes {
				g.UpsertNode(n)
			}
		}
		frontier = next
	}

	return g, nil
}
