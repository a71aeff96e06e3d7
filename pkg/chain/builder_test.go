package chain

import (
	"context"
	"fmt"
	"testing"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/graph"
	"github.com/traceguard/backend/pkg/store/memory"
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

func resolves(supplier, entity string) common.GraphEdge {
	return common.GraphEdge{Source: supplier, Target: entity, Kind: common.EdgeResolvesTo, Confidence: 1}
}

func nodeByID(t *testing.T, out common.SupplyChainGraph, id string) common.ChainNode {
	t.Helper()
	for _, n := range out.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %q not in output", id)
	return common.ChainNode{}
}

func TestBuildFromGraphTiers(t *testing.T) {
	g := graph.New()
	g.UpsertEdge(resolves("Acme Inc", "Acme Corp"))
	g.UpsertEdge(relation("Acme Corp", "Mid Co", common.RelationOwns, 1))
	g.UpsertEdge(relation("Mid Co", "Deep Co", common.RelationPartnerOf, 0.7))

	out := BuildFromGraph(g, "Acme Inc", 3)

	root := nodeByID(t, out, "Acme Inc")
	if root.Tier != 0 || root.RiskLevel != common.RiskGreen || root.RiskScore != 0 {
		t.Errorf("supplier node = %+v, want tier 0, GREEN, risk 0", root)
	}
	if n := nodeByID(t, out, "Acme Corp"); n.Tier != 1 {
		t.Errorf("resolved entity tier = %d, want 1", n.Tier)
	}
	if n := nodeByID(t, out, "Mid Co"); n.Tier != 2 {
		t.Errorf("Mid Co tier = %d, want 2", n.Tier)
	}
	if n := nodeByID(t, out, "Deep Co"); n.Tier != 3 {
		t.Errorf("Deep Co tier = %d, want 3", n.Tier)
	}

	if len(out.Links) != 3 {
		t.Errorf("links = %d, want 3", len(out.Links))
	}
	if out.Links[0].Type != "" || out.Links[1].Type != common.RelationOwns {
		t.Errorf("unexpected link ordering: %+v", out.Links)
	}
}

func TestBuildFromGraphRiskColors(t *testing.T) {
	low, mid, high := 12.0, 45.0, 88.0
	g := graph.New()
	g.UpsertEdge(resolves("S", "Root"))
	g.UpsertEdge(relation("Root", "Low", common.RelationOwns, 1))
	g.UpsertEdge(relation("Root", "Mid", common.RelationOwns, 1))
	g.UpsertEdge(relation("Root", "High", common.RelationOwns, 1))
	g.UpsertEdge(relation("Root", "Listed", common.RelationOwns, 1))
	g.UpsertNode(common.GraphNode{Key: "Low", Kind: common.NodeEntity, RiskScore: &low})
	g.UpsertNode(common.GraphNode{Key: "Mid", Kind: common.NodeEntity, RiskScore: &mid})
	g.UpsertNode(common.GraphNode{Key: "High", Kind: common.NodeEntity, RiskScore: &high})
	g.UpsertNode(common.GraphNode{Key: "Listed", Kind: common.NodeEntity, Sanctioned: true, RiskScore: &low})

	out := BuildFromGraph(g, "S", 2)

	tests := []struct {
		id   string
		want string
	}{
		{"Low", common.RiskGreen},
		{"Mid", common.RiskYellow},
		{"High", common.RiskRed},
		{"Listed", common.RiskRed},
		{"Root", common.RiskGreen}, // no cached score
	}
	for _, tt := range tests {
		if n := nodeByID(t, out, tt.id); n.RiskLevel != tt.want {
			t.Errorf("%s risk level = %s, want %s", tt.id, n.RiskLevel, tt.want)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		sanctioned bool
		risk       float64
		want       string
	}{
		{false, 0, common.RiskGreen},
		{false, 30, common.RiskGreen},
		{false, 30.01, common.RiskYellow},
		{false, 60, common.RiskYellow},
		{false, 60.01, common.RiskRed},
		{true, 0, common.RiskRed},
	}
	for _, tt := range tests {
		if got := Classify(tt.sanctioned, tt.risk); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tt.sanctioned, tt.risk, got, tt.want)
		}
	}
}

func TestBuildFromGraphCaps(t *testing.T) {
	g := graph.New()
	g.UpsertEdge(resolves("S", "Hub"))
	for i := 0; i < 500; i++ {
		g.UpsertEdge(relation("Hub", fmt.Sprintf("sub-%03d", i), common.RelationOwns, 1))
	}

	out := BuildFromGraph(g, "S", 2)
	if len(out.Nodes) != MaxNodes {
		t.Errorf("nodes = %d, want capped at %d", len(out.Nodes), MaxNodes)
	}
	if len(out.Links) > MaxLinks {
		t.Errorf("links = %d, want at most %d", len(out.Links), MaxLinks)
	}
}

func TestBuildFromGraphTierLastWriteWins(t *testing.T) {
	g := graph.New()
	g.UpsertEdge(resolves("S", "A"))
	g.UpsertEdge(relation("A", "B", common.RelationOwns, 1))
	g.UpsertEdge(relation("B", "C", common.RelationOwns, 1))
	g.UpsertEdge(relation("A", "C", common.RelationPartnerOf, 1))

	out := BuildFromGraph(g, "S", 3)

	// C is reached at tier 3 via B first, then re-tiered to 2 by the
	// direct edge visited later.
	if n := nodeByID(t, out, "C"); n.Tier != 2 {
		t.Errorf("C tier = %d, want 2 (last visit wins)", n.Tier)
	}
}

func TestBuildFromGraphSanctionPaths(t *testing.T) {
	g := graph.New()
	g.UpsertEdge(resolves("S", "A"))
	g.UpsertEdge(relation("A", "Listed Co", common.RelationOwns, 1))
	g.UpsertNode(common.GraphNode{Key: "Listed Co", Kind: common.NodeEntity, Sanctioned: true})

	out := BuildFromGraph(g, "S", 2)
	if len(out.SanctionPaths) != 1 {
		t.Fatalf("sanction paths = %d, want 1", len(out.SanctionPaths))
	}
	want := []string{"S", "A", "Listed Co"}
	for i, v := range want {
		if out.SanctionPaths[0][i] != v {
			t.Errorf("sanction path = %v, want %v", out.SanctionPaths[0], want)
			break
		}
	}
}

func TestBuilderBuild(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStorage()

	supplier, err := st.CreateSupplier(ctx, common.Supplier{Name: "Acme Inc"})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertGraphNode(ctx, common.GraphNode{Key: "Acme Inc", Kind: common.NodeSupplier}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertGraphEdge(ctx, resolves("Acme Inc", "Acme Corp")); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertGraphEdge(ctx, relation("Acme Corp", "Partner GmbH", common.RelationPartnerOf, 0.8)); err != nil {
		t.Fatal(err)
	}

	out, err := NewBuilder(st).Build(ctx, supplier.ID, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(out.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(out.Nodes))
	}
	if n := nodeByID(t, out, "Partner GmbH"); n.Tier != 2 {
		t.Errorf("Partner GmbH tier = %d, want 2", n.Tier)
	}
}

func TestBuilderBuildDefaultDepth(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStorage()

	supplier, err := st.CreateSupplier(ctx, common.Supplier{Name: "Acme Inc"})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []common.GraphEdge{
		resolves("Acme Inc", "Tier1 Co"),
		relation("Tier1 Co", "Tier2 Co", common.RelationOwns, 1),
		relation("Tier2 Co", "Tier3 Co", common.RelationOwns, 1),
		relation("Tier3 Co", "Tier4 Co", common.RelationOwns, 1),
	} {
		if err := st.UpsertGraphEdge(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	// Depth 0 means the default of two relation hops past the resolved
	// entities: Tier3 Co is the deepest node in the output.
	out, err := NewBuilder(st).Build(ctx, supplier.ID, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := nodeByID(t, out, "Tier3 Co"); n.Tier != 3 {
		t.Errorf("Tier3 Co tier = %d, want 3", n.Tier)
	}
	for _, n := range out.Nodes {
		if n.ID == "Tier4 Co" {
			t.Errorf("Tier4 Co included beyond the default depth of %d", DefaultDepth)
		}
	}
}

func TestBuilderBuildUnknownSupplier(t *testing.T) {
	_, err := NewBuilder(memory.NewMemoryStorage()).Build(context.Background(), 404, 2)
	if err == nil {
		t.Fatal("Build() on an unknown supplier succeeded, want error")
	}
}
