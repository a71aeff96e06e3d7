package assess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/resolve"
	"github.com/traceguard/backend/pkg/sanctions"
	"github.com/traceguard/backend/pkg/store/memory"
	"github.com/traceguard/backend/pkg/trust"
)

type fakeExport struct {
	result common.ExportControlResult
	err    error
}

func (f *fakeExport) Evaluate(context.Context, common.Supplier) (common.ExportControlResult, error) {
	return f.result, f.err
}

type fakeNews struct {
	score float64
	err   error
}

func (f *fakeNews) SignalScore(context.Context, string) (float64, error) {
	return f.score, f.err
}

type fixture struct {
	st       *memory.MemoryStorage
	svc      *Service
	supplier common.Supplier
}

func newFixture(t *testing.T, export ExportControlEvaluator, news NewsProvider) *fixture {
	t.Helper()
	st := memory.NewMemoryStorage()
	supplier, err := st.CreateSupplier(context.Background(), common.Supplier{Name: "Acme Inc"})
	require.NoError(t, err)

	svc := NewService(
		st,
		sanctions.NewMatcher(st),
		trust.NewEngine(st, trust.DefaultModel()),
		resolve.NewService(st),
		export,
		news,
	)
	return &fixture{st: st, svc: svc, supplier: supplier}
}

func TestRunAssessmentCleanSupplierPasses(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusPass}}, &fakeNews{score: 0})

	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, result.OverallStatus)
	require.Equal(t, 0.0, result.RiskScore)
	require.Equal(t, "v2", result.ScoringVersion)
	require.False(t, result.NewsDegraded)
	require.Equal(t, ExecutiveBrief(common.StatusPass), result.ExecutiveBrief)

	// One history row and a refreshed supplier snapshot.
	latest, err := f.st.LatestAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, latest.OverallStatus)

	stored, err := f.st.SupplierByID(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, stored.OverallStatus)
}

func TestRunAssessmentSanctionsHitOverridesAllSignals(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusPass}}, &fakeNews{score: 0})

	// With a sanctions weight at or above the FAIL threshold, a list hit
	// alone fails the assessment.
	_, err := f.st.CreateScoringConfig(context.Background(), common.ScoringConfig{
		SanctionsWeight:         80,
		ExportFailWeight:        30,
		ExportConditionalWeight: 15,
		Version:                 "v2-strict",
		Active:                  true,
	})
	require.NoError(t, err)
	_, err = f.st.ReplaceSanctionedEntities(context.Background(), []common.SanctionedEntity{{Name: "Acme Inc", Source: "OFAC"}})
	require.NoError(t, err)

	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, common.StatusFail, result.OverallStatus)
	require.Equal(t, 80.0, result.RiskScore)
	require.Equal(t, common.StatusFail, result.Sanctions.OverallStatus)
	require.Equal(t, "v2-strict", result.ScoringVersion)
}

func TestRunAssessmentExportControlWeights(t *testing.T) {
	tests := []struct {
		name       string
		export     common.ExportControlResult
		wantRisk   float64
		wantStatus string
	}{
		{"fail", common.ExportControlResult{Status: common.StatusFail, Reason: "covered equipment"}, 30, common.StatusPass},
		{"conditional", common.ExportControlResult{Status: common.StatusConditional, Reason: "pending review"}, 15, common.StatusPass},
		{"pass", common.ExportControlResult{Status: common.StatusPass}, 0, common.StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeExport{result: tt.export}, &fakeNews{score: 0})

			result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
			require.NoError(t, err)
			require.Equal(t, tt.wantRisk, result.RiskScore)
			require.Equal(t, tt.wantStatus, result.OverallStatus)
		})
	}
}

func TestRunAssessmentCombinedSignalsConditional(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusFail, Reason: "covered equipment"}}, &fakeNews{score: 25})

	// 30 export + 25 news = 55, inside the conditional band.
	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, 55.0, result.RiskScore)
	require.Equal(t, common.StatusConditional, result.OverallStatus)
	require.Equal(t, 25.0, result.NewsSignalScore)
	require.NotEmpty(t, result.Explanations)
}

func TestRunAssessmentIncludesGraphRisk(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusPass}}, &fakeNews{score: 0})

	// The supplier resolves to "Acme Inc" (created on first assessment);
	// seed a relation so the graph contributes 10.0.
	resolver := resolve.NewService(f.st)
	_, err := resolver.ResolveSupplierEntity(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.NoError(t, resolver.UpsertRelation(context.Background(), "Acme Inc", "Bad Actor", common.RelationOwns, 1.0))

	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, 10.0, result.GraphRiskScore)
	require.Equal(t, 10.0, result.RiskScore)
	require.Equal(t, common.StatusPass, result.OverallStatus)
}

func TestRunAssessmentDegradedCollaborators(t *testing.T) {
	f := newFixture(t, &fakeExport{err: errors.New("upstream 503")}, &fakeNews{err: errors.New("timeout")})

	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, result.OverallStatus)
	require.Equal(t, 0.0, result.RiskScore)
	require.True(t, result.ExportControl.Degraded, "export failure must be visible, not silent")
	require.True(t, result.NewsDegraded, "news failure must be distinguishable from a genuine zero")
}

func TestRunAssessmentRiskCappedAt100(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusFail, Reason: "covered equipment"}}, &fakeNews{score: 90})

	_, err := f.st.ReplaceSanctionedEntities(context.Background(), []common.SanctionedEntity{{Name: "Acme Inc", Source: "OFAC"}})
	require.NoError(t, err)

	result, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, result.RiskScore)
	require.Equal(t, common.StatusFail, result.OverallStatus)
}

func TestRunAssessmentMaterializesDefaultScoringConfig(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.svc.RunAssessment(context.Background(), f.supplier.ID)
	require.NoError(t, err)

	cfg, err := f.st.ActiveScoringConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v2", cfg.Version)
	require.Equal(t, 70.0, cfg.SanctionsWeight)
}

func TestCompareSuppliersKeepsInputOrder(t *testing.T) {
	f := newFixture(t, &fakeExport{result: common.ExportControlResult{Status: common.StatusPass}}, &fakeNews{score: 0})

	listed, err := f.st.CreateSupplier(context.Background(), common.Supplier{Name: "Shady Trading Ltd"})
	require.NoError(t, err)
	_, err = f.st.CreateScoringConfig(context.Background(), common.ScoringConfig{
		SanctionsWeight:         80,
		ExportFailWeight:        30,
		ExportConditionalWeight: 15,
		Version:                 "v2-strict",
		Active:                  true,
	})
	require.NoError(t, err)
	_, err = f.st.ReplaceSanctionedEntities(context.Background(), []common.SanctionedEntity{{Name: "Shady Trading Ltd", Source: "OFAC"}})
	require.NoError(t, err)

	results, err := f.svc.CompareSuppliers(context.Background(), []int64{listed.ID, f.supplier.ID})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Shady Trading Ltd", results[0].Supplier)
	require.Equal(t, common.StatusFail, results[0].OverallStatus)
	require.Equal(t, "Acme Inc", results[1].Supplier)
	require.Equal(t, common.StatusPass, results[1].OverallStatus)

	// Each supplier got its own history row.
	for _, id := range []int64{listed.ID, f.supplier.ID} {
		_, err := f.st.LatestAssessment(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestCompareSuppliersUnknownSupplierFails(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.svc.CompareSuppliers(context.Background(), []int64{f.supplier.ID, 9999})
	require.Error(t, err)
}

func TestRunAssessmentUnknownSupplier(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.svc.RunAssessment(context.Background(), 9999)
	require.Error(t, err)
}
