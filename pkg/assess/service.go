// Package assess combines sanctions screening, export-control evaluation,
// external news signals and graph risk into one supplier assessment with a
// single overall status.
package assess

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/resolve"
	"github.com/traceguard/backend/pkg/sanctions"
	"github.com/traceguard/backend/pkg/store"
	"github.com/traceguard/backend/pkg/trust"
)

// Overall status thresholds. Sum of weighted signals at or above FailAt is
// FAIL, at or above ConditionalAt is CONDITIONAL, anything below passes.
// This is the newer threshold scheme; older configs used 70/30.
const (
	FailAt        = 75.0
	ConditionalAt = 40.0
)

// ExportControlEvaluator is the external export-control collaborator.
type ExportControlEvaluator interface {
	Evaluate(ctx context.Context, supplier common.Supplier) (common.ExportControlResult, error)
}

// NewsProvider is the external news-sentiment collaborator. SignalScore
// returns a raw 0..100 risk magnitude.
type NewsProvider interface {
	SignalScore(ctx context.Context, supplierName string) (float64, error)
}

// Service runs supplier assessments.
type Service struct {
	store    store.Storage
	matcher  *sanctions.Matcher
	engine   *trust.Engine
	resolver *resolve.Service
	export   ExportControlEvaluator
	news     NewsProvider
}

// NewService wires the aggregator. The export and news collaborators may be
// nil; their signals then contribute zero and are marked degraded.
func NewService(st store.Storage, matcher *sanctions.Matcher, engine *trust.Engine, resolver *resolve.Service, export ExportControlEvaluator, news NewsProvider) *Service {
	return &Service{
		store:    st,
		matcher:  matcher,
		engine:   engine,
		resolver: resolver,
		export:   export,
		news:     news,
	}
}

// DefaultScoringConfig returns the built-in per-signal weights materialized
// when no scoring config row is active.
func DefaultScoringConfig() common.ScoringConfig {
	return common.ScoringConfig{
		SanctionsWeight:         70,
		ExportFailWeight:        30,
		ExportConditionalWeight: 15,
		Version:                 "v2",
		Active:                  true,
	}
}

// RunAssessment screens one supplier end to end: resolve it to an entity,
// run all signals, combine them under the active scoring config, persist an
// immutable history row and update the supplier's cached snapshot.
// Collaborator failures degrade their signal to zero instead of failing the
// assessment and are flagged in the result.
func (s *Service) RunAssessment(ctx context.Context, supplierID int64) (common.AssessmentResult, error) {
	supplier, err := s.store.SupplierByID(ctx, supplierID)
	if err != nil {
		return common.AssessmentResult{}, err
	}

	cfg, err := s.activeScoringConfig(ctx)
	if err != nil {
		return common.AssessmentResult{}, err
	}

	resolution, err := s.resolver.ResolveSupplierEntity(ctx, supplierID)
	if err != nil {
		return common.AssessmentResult{}, fmt.Errorf("failed to resolve supplier entity: %w", err)
	}

	sanctionsResult, err := s.matcher.Screen(ctx, supplier.Name)
	if err != nil {
		return common.AssessmentResult{}, err
	}

	result := common.AssessmentResult{
		Supplier:       supplier.Name,
		Sanctions:      &sanctionsResult,
		ScoringVersion: cfg.Version,
		Explanations:   make([]string, 0),
	}

	risk := 0.0
	if sanctionsResult.OverallStatus == common.StatusFail {
		risk += cfg.SanctionsWeight
		result.Explanations = append(result.Explanations, fmt.Sprintf("Sanctions screening failed (+%.0f)", cfg.SanctionsWeight))
	}

	exportResult := s.evaluateExport(ctx, supplier)
	result.ExportControl = &exportResult
	switch exportResult.Status {
	case common.StatusFail:
		risk += cfg.ExportFailWeight
		result.Explanations = append(result.Explanations, fmt.Sprintf("Export control evaluation failed (+%.0f)", cfg.ExportFailWeight))
	case common.StatusConditional:
		risk += cfg.ExportConditionalWeight
		result.Explanations = append(result.Explanations, fmt.Sprintf("Export control evaluation conditional (+%.0f)", cfg.ExportConditionalWeight))
	}
	if exportResult.Degraded {
		result.Explanations = append(result.Explanations, "Export control signal unavailable, treated as neutral")
	}

	newsScore, newsDegraded := s.newsSignal(ctx, supplier.Name)
	result.NewsSignalScore = newsScore
	result.NewsDegraded = newsDegraded
	if newsScore > 0 {
		risk += newsScore
		result.Explanations = append(result.Explanations, fmt.Sprintf("Adverse news signal (+%.1f)", newsScore))
	}
	if newsDegraded {
		result.Explanations = append(result.Explanations, "News signal unavailable, treated as neutral")
	}

	trustResult, err := s.engine.CalculateTrustScore(ctx, resolution.Entity.CanonicalName, trust.DefaultScenario)
	if err != nil {
		return common.AssessmentResult{}, fmt.Errorf("failed to compute graph risk: %w", err)
	}
	result.GraphRiskScore = trustResult.Score
	if trustResult.Score > 0 {
		risk += trustResult.Score
		result.Explanations = append(result.Explanations, fmt.Sprintf("Relationship graph risk (+%.1f)", trustResult.Score))
	}

	result.RiskScore = math.Min(round2(risk), 100)
	result.OverallStatus = statusFor(result.RiskScore)
	result.ExecutiveBrief = ExecutiveBrief(result.OverallStatus)

	if _, err := s.store.AppendAssessmentHistory(ctx, common.AssessmentHistory{
		SupplierID:     supplierID,
		RiskScore:      result.RiskScore,
		OverallStatus:  result.OverallStatus,
		ScoringVersion: cfg.Version,
	}); err != nil {
		return common.AssessmentResult{}, fmt.Errorf("failed to append assessment history: %w", err)
	}
	if err := s.store.UpdateSupplierSnapshot(ctx, supplierID, result.RiskScore, result.OverallStatus); err != nil {
		logger.Warn("[Assess] Failed to update supplier snapshot", "supplier_id", supplierID, "err", err)
	}

	logger.Info("[Assess] Assessment complete", "supplier", supplier.Name, "status", result.OverallStatus, "risk", result.RiskScore)
	return result, nil
}

// maxParallelAssessments bounds concurrent assessments in a compare call.
const maxParallelAssessments = 4

// CompareSuppliers runs a full assessment for every listed supplier and
// returns the results in input order, so callers can put them side by side.
// Suppliers are assessed concurrently; any failing assessment fails the
// whole compare.
func (s *Service) CompareSuppliers(ctx context.Context, supplierIDs []int64) ([]common.AssessmentResult, error) {
	results := make([]common.AssessmentResult, len(supplierIDs))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelAssessments)
	for i, id := range supplierIDs {
		g.Go(func() error {
			result, err := s.RunAssessment(groupCtx, id)
			if err != nil {
				return fmt.Errorf("supplier %d: %w", id, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) activeScoringConfig(ctx context.Context) (common.ScoringConfig, error) {
	cfg, err := s.store.ActiveScoringConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return common.ScoringConfig{}, fmt.Errorf("failed to load scoring config: %w", err)
	}

	created, err := s.store.CreateScoringConfig(ctx, DefaultScoringConfig())
	if err != nil {
		return common.ScoringConfig{}, fmt.Errorf("%w: no active scoring config and default creation failed: %v", store.ErrConfigMissing, err)
	}
	logger.Info("[Assess] Materialized default scoring config", "version", created.Version)
	return created, nil
}

func (s *Service) evaluateExport(ctx context.Context, supplier common.Supplier) common.ExportControlResult {
	if s.export == nil {
		return common.ExportControlResult{Status: common.StatusPass, Reason: "Export control evaluator not configured", Degraded: true}
	}
	result, err := s.export.Evaluate(ctx, supplier)
	if err != nil {
		logger.Warn("[Assess] Export control collaborator failed", "supplier", supplier.Name, "err", err)
		return common.ExportControlResult{Status: common.StatusPass, Reason: "Export control evaluation unavailable", Degraded: true}
	}
	return result
}

func (s *Service) newsSignal(ctx context.Context, supplierName string) (float64, bool) {
	if s.news == nil {
		return 0, true
	}
	score, err := s.news.SignalScore(ctx, supplierName)
	if err != nil {
		logger.Warn("[Assess] News collaborator failed", "supplier", supplierName, "err", err)
		return 0, true
	}
	return score, false
}

func statusFor(risk float64) string {
	switch {
	case risk >= FailAt:
		return common.StatusFail
	case risk >= ConditionalAt:
		return common.StatusConditional
	default:
		return common.StatusPass
	}
}

// ExecutiveBrief maps an overall status to its fixed summary line.
func ExecutiveBrief(status string) string {
	switch status {
	case common.StatusFail:
		return "Severe compliance exposure detected. Immediate mitigation recommended."
	case common.StatusConditional:
		return "Moderate compliance risk identified. Enhanced due diligence advised."
	default:
		return "No material compliance risk detected based on current screening data."
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
