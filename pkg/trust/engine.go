package trust

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/graph"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// Store is the persistence surface the engine needs: bounded graph
// hydration, entity lookups, the active trust model, and score write-back.
type Store interface {
	graph.EdgeSource

	EntityByCanonicalName(ctx context.Context, name string) (common.Entity, error)
	UpdateEntityRiskScore(ctx context.Context, entityID int64, score float64) error
	UpdateGraphNodeRisk(ctx context.Context, key string, score float64) error

	ActiveTrustModel(ctx context.Context, modelName string) (common.TrustModelConfig, error)
	CreateTrustModel(ctx context.Context, cfg common.TrustModelConfig) (common.TrustModelConfig, error)

	AppendTrustScoreHistory(ctx context.Context, h common.TrustScoreHistory) (common.TrustScoreHistory, error)
}

// Engine computes decayed, weighted multi-hop risk scores over the
// relationship graph.
type Engine struct {
	store    Store
	defaults common.TrustModelConfig
}

// NewEngine creates a propagation engine. The defaults are materialized as
// the active trust model for a scenario that has none configured yet.
func NewEngine(s Store, defaults common.TrustModelConfig) *Engine {
	if defaults.DepthLimit <= 0 {
		defaults = DefaultModel()
	}
	return &Engine{store: s, defaults: defaults}
}

// CalculateTrustScore scores the entity identified by its canonical name
// under the given scenario, writes the score back onto the entity's cached
// risk field, and appends an immutable history record tagged with the model
// version. An entity with no outbound relations and no sanction flag scores
// exactly 0.
func (e *Engine) CalculateTrustScore(ctx context.Context, entityName, scenario string) (common.TrustScoreResult, error) {
	if scenario == "" {
		scenario = DefaultScenario
	}

	entity, err := e.store.EntityByCanonicalName(ctx, entityName)
	if err != nil {
		return common.TrustScoreResult{}, err
	}

	cfg, err := e.activeModel(ctx, scenario)
	if err != nil {
		return common.TrustScoreResult{}, err
	}

	g, err := graph.Load(ctx, e.store, entity.CanonicalName, cfg.DepthLimit)
	if err != nil {
		return common.TrustScoreResult{}, fmt.Errorf("failed to hydrate graph for %q: %w", entityName, err)
	}

	// The relational store is authoritative for the sanction flag; the
	// mirrored graph node can lag behind a just-applied list reload.
	g.UpsertNode(common.GraphNode{
		Key:        entity.CanonicalName,
		Kind:       common.NodeEntity,
		EntityType: entity.EntityType,
		Sanctioned: entity.Sanctioned,
		RiskScore:  entity.RiskScore,
	})

	score, breakdown := Score(g, entity.CanonicalName, cfg)

	if err := e.store.UpdateEntityRiskScore(ctx, entity.ID, score); err != nil {
		return common.TrustScoreResult{}, fmt.Errorf("failed to cache risk score: %w", err)
	}
	if err := e.store.UpdateGraphNodeRisk(ctx, entity.CanonicalName, score); err != nil {
		logger.Warn("[Trust] Failed to mirror risk score onto graph node", "entity", entityName, "err", err)
	}

	if _, err := e.store.AppendTrustScoreHistory(ctx, common.TrustScoreHistory{
		EntityID:     entity.ID,
		ModelVersion: cfg.Version,
		Scenario:     scenario,
		Score:        score,
		Breakdown:    breakdown,
	}); err != nil {
		return common.TrustScoreResult{}, fmt.Errorf("failed to append trust score history: %w", err)
	}

	logger.Debug("[Trust] Scored entity", "entity", entityName, "scenario", scenario, "score", score, "paths", len(breakdown))

	return common.TrustScoreResult{
		Score:          score,
		ModelVersion:   cfg.Version,
		Scenario:       scenario,
		Explainability: breakdown,
	}, nil
}

func (e *Engine) activeModel(ctx context.Context, scenario string) (common.TrustModelConfig, error) {
	cfg, err := e.store.ActiveTrustModel(ctx, scenario)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return common.TrustModelConfig{}, fmt.Errorf("failed to load trust model: %w", err)
	}

	seed := e.defaults
	seed.ModelName = scenario
	seed.Active = true
	created, err := e.store.CreateTrustModel(ctx, seed)
	if err != nil {
		return common.TrustModelConfig{}, fmt.Errorf("%w: no active trust model for %q and default creation failed: %v", store.ErrConfigMissing, scenario, err)
	}
	logger.Info("[Trust] Materialized default trust model", "scenario", scenario, "version", created.Version)
	return created, nil
}

// Score runs the propagation algorithm over an already hydrated graph.
// Every directed path of 1..DepthLimit relation edges contributes its summed
// edge risk, decayed by path length; paths are additive, never max-reduced.
// A direct sanction flag on the scored node adds the configured boost. The
// result is mapped onto a 0..100 scale and capped.
func Score(g *graph.Graph, root string, cfg common.TrustModelConfig) (float64, []common.BreakdownEntry) {
	decay := cfg.DecayFactor
	if decay <= 0 {
		decay = 1
	}

	totalRisk := 0.0
	breakdown := make([]common.BreakdownEntry, 0)

	for _, path := range g.Paths(root, cfg.DepthLimit) {
		pathRisk := 0.0
		for _, edge := range path {
			weight := common.DefaultRelationWeight
			if w, ok := cfg.RelationWeights[edge.Type]; ok {
				weight = w
			}
			confidence := edge.Confidence
			if confidence <= 0 {
				confidence = common.DefaultEdgeConfidence
			}
			pathRisk += weight * confidence
		}

		depth := len(path)
		contribution := pathRisk / (float64(depth+1) * decay)
		totalRisk += contribution

		breakdown = append(breakdown, common.BreakdownEntry{
			Depth:    depth,
			PathRisk: round(contribution, 4),
		})
	}

	if g.Sanctioned(root) {
		totalRisk += cfg.SanctionBoost
		breakdown = append(breakdown, common.BreakdownEntry{SanctionBoost: cfg.SanctionBoost})
	}

	return math.Min(round(totalRisk*20, 2), 100), breakdown
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
