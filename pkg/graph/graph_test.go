package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/traceguard/backend/pkg/common"
)

func relation(source, target, relType string, confidence float64) common.GraphEdge {
	return common.GraphEdge{
		Source:     source,
		Target:     target,
		Kind:       common.EdgeRelation,
		Type:       relType,
		Confidence: confidence,
		Weight:     confidence * common.BaseWeight(relType),
	}
}

func TestUpsertEdgeMergeSemantics(t *testing.T) {
	g := New()

	g.UpsertEdge(relation("a", "b", common.RelationOwns, 0.4))
	g.UpsertEdge(relation("a", "b", common.RelationOwns, 0.9))

	if got := g.EdgeCount(); got != 1 {
		t.Fatalf("EdgeCount() = %d, want 1 after re-asserting the same (source, target, type)", got)
	}
	out := g.Outbound("a")
	if len(out) != 1 {
		t.Fatalf("Outbound(a) = %d edges, want 1", len(out))
	}
	if out[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9 (last write wins)", out[0].Confidence)
	}

	// A different relation type to the same target is a distinct edge.
	g.UpsertEdge(relation("a", "b", common.RelationPartnerOf, 0.5))
	if got := g.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() = %d, want 2 with two relation types", got)
	}
}

func TestUpsertEdgeMaterializesEndpoints(t *testing.T) {
	g := New()
	g.UpsertEdge(common.GraphEdge{Source: "acme corp", Target: "Acme Ltd", Kind: common.EdgeResolvesTo, Confidence: 1})

	if n, ok := g.Node("acme corp"); !ok || n.Kind != common.NodeSupplier {
		t.Errorf("resolution edge source node = %+v, ok=%v, want supplier node", n, ok)
	}
	if n, ok := g.Node("Acme Ltd"); !ok || n.Kind != common.NodeEntity {
		t.Errorf("resolution edge target node = %+v, ok=%v, want entity node", n, ok)
	}
}

func TestPathsDepthBound(t *testing.T) {
	g := New()
	g.UpsertEdge(relation("a", "b", common.RelationOwns, 1))
	g.UpsertEdge(relation("b", "c", common.RelationControls, 1))
	g.UpsertEdge(relation("c", "d", common.RelationPartnerOf, 1))

	tests := []struct {
		name     string
		depth    int
		wantLens []int
	}{
		{name: "depth 1", depth: 1, wantLens: []int{1}},
		{name: "depth 2", depth: 2, wantLens: []int{1, 2}},
		{name: "depth exceeds chain", depth: 5, wantLens: []int{1, 2, 3}},
		{name: "depth 0", depth: 0, wantLens: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := g.Paths("a", tt.depth)
			if len(paths) != len(tt.wantLens) {
				t.Fatalf("Paths(a, %d) returned %d paths, want %d", tt.depth, len(paths), len(tt.wantLens))
			}
			for i, want := range tt.wantLens {
				if len(paths[i]) != want {
					t.Errorf("path %d has %d edges, want %d", i, len(paths[i]), want)
				}
			}
		})
	}
}

func TestPathsCycleTermination(t *testing.T) {
	g := New()
	g.UpsertEdge(relation("a", "b", common.RelationOwns, 1))
	g.UpsertEdge(relation("b", "a", common.RelationOwns, 1))

	paths := g.Paths("a", 10)
	// a->b and a->b->a is cut because a is already on the path.
	if len(paths) != 1 {
		t.Fatalf("Paths on a 2-cycle returned %d paths, want 1", len(paths))
	}
}

func TestPathsParallelEdgesContributeIndependently(t *testing.T) {
	g := New()
	g.UpsertEdge(relation("a", "b", common.RelationOwns, 1))
	g.UpsertEdge(relation("a", "b", common.RelationAssociatedWith, 0.5))

	paths := g.Paths("a", 4)
	if len(paths) != 2 {
		t.Fatalf("Paths() = %d paths, want 2 for two relation types to the same target", len(paths))
	}
}

func TestPathsIsolatedNode(t *testing.T) {
	g := New()
	g.UpsertNode(common.GraphNode{Key: "lonely", Kind: common.NodeEntity})

	if paths := g.Paths("lonely", 4); len(paths) != 0 {
		t.Errorf("Paths on isolated node = %d paths, want 0", len(paths))
	}
}

func TestPathsIgnoresResolutionEdges(t *testing.T) {
	g := New()
	g.UpsertEdge(common.GraphEdge{Source: "a", Target: "b", Kind: common.EdgeResolvesTo, Confidence: 1})
	g.UpsertEdge(relation("a", "c", common.RelationOwns, 1))

	paths := g.Paths("a", 2)
	if len(paths) != 1 || paths[0][0].Target != "c" {
		t.Errorf("Paths should follow RELATION edges only, got %+v", paths)
	}
}

func TestSanctionPaths(t *testing.T) {
	g := New()
	g.UpsertEdge(common.GraphEdge{Source: "supplier x", Target: "X Corp", Kind: common.EdgeResolvesTo, Confidence: 1})
	g.UpsertEdge(relation("X Corp", "Shady Holdings", common.RelationOwns, 1))
	g.UpsertEdge(relation("X Corp", "Clean Inc", common.RelationPartnerOf, 1))
	g.UpsertNode(common.GraphNode{Key: "Shady Holdings", Kind: common.NodeEntity, Sanctioned: true})
	g.UpsertNode(common.GraphNode{Key: "Clean Inc", Kind: common.NodeEntity})

	paths := g.SanctionPaths("supplier x", 3)
	if len(paths) != 1 {
		t.Fatalf("SanctionPaths() = %d paths, want 1", len(paths))
	}
	want := []string{"supplier x", "X Corp", "Shady Holdings"}
	if len(paths[0]) != len(want) {
		t.Fatalf("path = %v, want %v", paths[0], want)
	}
	for i := range want {
		if paths[0][i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, paths[0][i], want[i])
		}
	}

	if out := g.SanctionPaths("supplier x", 1); len(out) != 0 {
		t.Errorf("SanctionPaths with depth 1 = %d paths, want 0 (sanctioned node is 2 hops away)", len(out))
	}
}

func TestPointLookups(t *testing.T) {
	g := New()
	score := 42.5
	g.UpsertNode(common.GraphNode{Key: "e1", Kind: common.NodeEntity, Sanctioned: true, RiskScore: &score})

	if !g.Sanctioned("e1") {
		t.Error("Sanctioned(e1) = false, want true")
	}
	if g.Sanctioned("missing") {
		t.Error("Sanctioned(missing) = true, want false")
	}
	if got := g.RiskScore("e1"); got != 42.5 {
		t.Errorf("RiskScore(e1) = %v, want 42.5", got)
	}
	if got := g.RiskScore("missing"); got != 0 {
		t.Errorf("RiskScore(missing) = %v, want 0", got)
	}
}

func TestConcurrentUpserts(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.UpsertEdge(relation("hub", "spoke", common.RelationOwns, 0.8))
				g.Paths("hub", 2)
			}
		}()
	}
	wg.Wait()

	if got := g.EdgeCount(); got != 1 {
		t.Errorf("EdgeCount() after concurrent identical upserts = %d, want 1", got)
	}
}

type fakeSource struct {
	nodes map[string]common.GraphNode
	edges map[string][]common.GraphEdge
}

func (f *fakeSource) GraphNodes(_ context.Context, keys []string) ([]common.GraphNode, error) {
	var out []common.GraphNode
	for _, k := range keys {
		if n, ok := f.nodes[k]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeSource) OutboundEdges(_ context.Context, sources []string) ([]common.GraphEdge, error) {
	var out []common.GraphEdge
	for _, s := range sources {
		out = append(out, f.edges[s]...)
	}
	return out, nil
}

func TestNodesAndEdgesSortedSnapshot(t *testing.T) {
	src := &fakeSource{
		nodes: map[string]common.GraphNode{
			"Zeta Corp":  {Key: "Zeta Corp", Kind: common.NodeEntity},
			"Alpha GmbH": {Key: "Alpha GmbH", Kind: common.NodeEntity},
			"Mid Ltd":    {Key: "Mid Ltd", Kind: common.NodeEntity},
			"Far Away":   {Key: "Far Away", Kind: common.NodeEntity},
		},
		edges: map[string][]common.GraphEdge{
			"Zeta Corp": {
				relation("Zeta Corp", "Mid Ltd", common.RelationOwns, 1),
				relation("Zeta Corp", "Alpha GmbH", common.RelationPartnerOf, 0.8),
			},
			"Mid Ltd": {relation("Mid Ltd", "Far Away", common.RelationControls, 1)},
		},
	}

	g, err := Load(context.Background(), src, "Zeta Corp", 2)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	nodes := g.Nodes()
	wantNodes := []string{"Alpha GmbH", "Far Away", "Mid Ltd", "Zeta Corp"}
	if len(nodes) != len(wantNodes) {
		t.Fatalf("Nodes() = %d nodes, want %d", len(nodes), len(wantNodes))
	}
	for i, want := range wantNodes {
		if nodes[i].Key != want {
			t.Errorf("Nodes()[%d].Key = %q, want %q", i, nodes[i].Key, want)
		}
	}

	edges := g.Edges()
	if len(edges) != 3 {
		t.Fatalf("Edges() = %d edges, want 3", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		a, b := edges[i-1], edges[i]
		if a.Source > b.Source || (a.Source == b.Source && a.Target > b.Target) {
			t.Errorf("Edges() not ordered at %d: (%s->%s) before (%s->%s)", i, a.Source, a.Target, b.Source, b.Target)
		}
	}

	// The snapshot is a copy: mutating it must not touch the graph.
	nodes[0].Sanctioned = true
	if g.Sanctioned("Alpha GmbH") {
		t.Error("mutating the Nodes() snapshot leaked into the graph")
	}
}

func TestLoadBoundedHydration(t *testing.T) {
	src := &fakeSource{
		nodes: map[string]common.GraphNode{
			"a": {Key: "a", Kind: common.NodeEntity},
			"b": {Key: "b", Kind: common.NodeEntity},
			"c": {Key: "c", Kind: common.NodeEntity, Sanctioned: true},
			"d": {Key: "d", Kind: common.NodeEntity},
		},
		edges: map[string][]common.GraphEdge{
			"a": {relation("a", "b", common.RelationOwns, 1)},
			"b": {relation("b", "c", common.RelationOwns, 1)},
			"c": {relation("c", "d", common.RelationOwns, 1)},
		},
	}

	g, err := Load(context.Background(), src, "a", 2)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (depth bound must exclude c->d)", g.EdgeCount())
	}
	if _, ok := g.Node("d"); ok {
		t.Error("node d loaded beyond the depth bound")
	}
	if !g.Sanctioned("c") {
		t.Error("node c lost its sanctioned flag during hydration")
	}
}
