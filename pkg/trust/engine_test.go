package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/graph"
	"github.com/traceguard/backend/pkg/store"
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

func TestScoreDirectOwnership(t *testing.T) {
	// One OWNS edge at full confidence: path risk 1.0, decayed by
	// 1/((1+1)*1.0) = 0.5, scaled by 20 = 10.0.
	g := graph.New()
	g.UpsertEdge(relation("Acme Corp", "Bad Actor", common.RelationOwns, 1.0))

	score, breakdown := Score(g, "Acme Corp", DefaultModel())
	if score != 10.0 {
		t.Fatalf("Score() = %v, want 10.0", score)
	}
	if len(breakdown) != 1 {
		t.Fatalf("breakdown has %d entries, want 1", len(breakdown))
	}
	if breakdown[0].Depth != 1 || breakdown[0].PathRisk != 0.5 {
		t.Errorf("breakdown[0] = %+v, want depth 1, path risk 0.5", breakdown[0])
	}
}

func TestScoreNoEdgesUnsanctioned(t *testing.T) {
	g := graph.New()
	g.UpsertNode(common.GraphNode{Key: "Quiet GmbH", Kind: common.NodeEntity})

	score, breakdown := Score(g, "Quiet GmbH", DefaultModel())
	if score != 0 {
		t.Errorf("Score() = %v, want exactly 0 for an isolated unsanctioned entity", score)
	}
	if len(breakdown) != 0 {
		t.Errorf("breakdown has %d entries, want 0", len(breakdown))
	}
}

func TestScoreSanctionBoost(t *testing.T) {
	g := graph.New()
	g.UpsertNode(common.GraphNode{Key: "Shady Holdings", Kind: common.NodeEntity, Sanctioned: true})

	cfg := DefaultModel()
	score, breakdown := Score(g, "Shady Holdings", cfg)
	if want := cfg.SanctionBoost * 20; score != want {
		t.Errorf("Score() = %v, want %v from the sanction boost alone", score, want)
	}
	if len(breakdown) != 1 || breakdown[0].SanctionBoost != cfg.SanctionBoost {
		t.Errorf("breakdown = %+v, want a single sanction boost entry", breakdown)
	}
}

func TestScoreSanctionMonotonicity(t *testing.T) {
	build := func(sanctioned bool) *graph.Graph {
		g := graph.New()
		g.UpsertEdge(relation("root", "mid", common.RelationControls, 0.8))
		g.UpsertEdge(relation("mid", "leaf", common.RelationPartnerOf, 0.6))
		g.UpsertNode(common.GraphNode{Key: "root", Kind: common.NodeEntity, Sanctioned: sanctioned})
		return g
	}

	clean, _ := Score(build(false), "root", DefaultModel())
	flagged, _ := Score(build(true), "root", DefaultModel())
	if flagged <= clean {
		t.Errorf("sanctioned score %v not greater than unsanctioned %v on an identical graph", flagged, clean)
	}
}

func TestScoreCappedAt100(t *testing.T) {
	g := graph.New()
	g.UpsertNode(common.GraphNode{Key: "hub", Kind: common.NodeEntity, Sanctioned: true})
	for _, target := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		g.UpsertEdge(relation("hub", target, common.RelationOwns, 1.0))
	}

	// 6 * 0.5 from the edges plus the boost is well past the cap.
	score, _ := Score(g, "hub", DefaultModel())
	if score != 100 {
		t.Errorf("Score() = %v, want capped at 100", score)
	}
}

func TestScoreUnknownRelationFallbacks(t *testing.T) {
	g := graph.New()
	// Unknown type and missing confidence fall back to 0.3 and 0.5:
	// path risk 0.15, decayed to 0.075, scaled to 1.5.
	g.UpsertEdge(common.GraphEdge{Source: "a", Target: "b", Kind: common.EdgeRelation, Type: "SUPPLIES"})

	score, _ := Score(g, "a", DefaultModel())
	if score != 1.5 {
		t.Errorf("Score() = %v, want 1.5 from default weight and confidence", score)
	}
}

func TestScoreDecayFactorReducesDeepContributions(t *testing.T) {
	g := graph.New()
	g.UpsertEdge(relation("a", "b", common.RelationOwns, 1.0))
	g.UpsertEdge(relation("b", "c", common.RelationOwns, 1.0))

	fast := DefaultModel()
	fast.DecayFactor = 2.0
	slow := DefaultModel()

	fastScore, _ := Score(g, "a", fast)
	slowScore, _ := Score(g, "a", slow)
	if fastScore >= slowScore {
		t.Errorf("decay factor 2.0 score %v not below decay factor 1.0 score %v", fastScore, slowScore)
	}
}

func TestCalculateTrustScorePersistsResult(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStorage()

	if _, err := st.CreateEntity(ctx, common.Entity{
		CanonicalName:  "Acme Corp",
		NormalizedName: "acme corp",
		EntityType:     "COMPANY",
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertGraphEdge(ctx, relation("Acme Corp", "Bad Actor", common.RelationOwns, 1.0)); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(st, DefaultModel())
	result, err := engine.CalculateTrustScore(ctx, "Acme Corp", "")
	if err != nil {
		t.Fatalf("CalculateTrustScore() error = %v", err)
	}

	if result.Score != 10.0 {
		t.Errorf("score = %v, want 10.0", result.Score)
	}
	if result.Scenario != DefaultScenario {
		t.Errorf("scenario = %q, want %q", result.Scenario, DefaultScenario)
	}
	if result.ModelVersion == "" {
		t.Error("model version is empty")
	}

	stored, err := st.EntityByCanonicalName(ctx, "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if stored.RiskScore == nil || *stored.RiskScore != 10.0 {
		t.Errorf("cached entity risk score = %v, want 10.0", stored.RiskScore)
	}
}

func TestCalculateTrustScoreMaterializesDefaultModel(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStorage()
	if _, err := st.CreateEntity(ctx, common.Entity{CanonicalName: "Solo AG", NormalizedName: "solo ag", EntityType: "COMPANY"}); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(st, DefaultModel())
	if _, err := engine.CalculateTrustScore(ctx, "Solo AG", "stress"); err != nil {
		t.Fatalf("CalculateTrustScore() error = %v", err)
	}

	cfg, err := st.ActiveTrustModel(ctx, "stress")
	if err != nil {
		t.Fatalf("expected an active trust model for the new scenario, got %v", err)
	}
	if !cfg.Active || cfg.ModelName != "stress" {
		t.Errorf("materialized config = %+v, want active model named stress", cfg)
	}
}

func TestCalculateTrustScoreUnknownEntity(t *testing.T) {
	engine := NewEngine(memory.NewMemoryStorage(), DefaultModel())
	_, err := engine.CalculateTrustScore(context.Background(), "Nobody Ltd", "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want store.ErrNotFound", err)
	}
}
