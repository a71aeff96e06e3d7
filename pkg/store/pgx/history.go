package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/traceguard/backend/pkg/common"
)

func (s *Storage) AppendTrustScoreHistory(ctx context.Context, h common.TrustScoreHistory) (common.TrustScoreHistory, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return common.TrustScoreHistory{}, err
	}
	breakdown, err := json.Marshal(h.Breakdown)
	if err != nil {
		return common.TrustScoreHistory{}, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	err = s.conn.QueryRow(ctx, `
		INSERT INTO trust_score_history (public_id, entity_id, model_version, scenario, score, breakdown)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, public_id, created_at`,
		publicID, h.EntityID, h.ModelVersion, h.Scenario, h.Score, breakdown,
	).Scan(&h.ID, &h.PublicID, &h.CreatedAt)
	if err != nil {
		return common.TrustScoreHistory{}, err
	}
	return h, nil
}

func (s *Storage) AppendAssessmentHistory(ctx context.Context, h common.AssessmentHistory) (common.AssessmentHistory, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return common.AssessmentHistory{}, err
	}

	err = s.conn.QueryRow(ctx, `
		INSERT INTO assessment_history (public_id, supplier_id, risk_score, overall_status, scoring_version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, public_id, created_at`,
		publicID, h.SupplierID, h.RiskScore, h.OverallStatus, h.ScoringVersion,
	).Scan(&h.ID, &h.PublicID, &h.CreatedAt)
	if err != nil {
		return common.AssessmentHistory{}, err
	}
	return h, nil
}

const assessmentColumns = `id, public_id, supplier_id, risk_score, overall_status, scoring_version, created_at`

func scanAssessment(row interface{ Scan(...any) error }) (common.AssessmentHistory, error) {
	var h common.AssessmentHistory
	err := row.Scan(&h.ID, &h.PublicID, &h.SupplierID, &h.RiskScore, &h.OverallStatus, &h.ScoringVersion, &h.CreatedAt)
	return h, err
}

func (s *Storage) ListAssessmentHistory(ctx context.Context, supplierID int64) ([]common.AssessmentHistory, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+assessmentColumns+` FROM assessment_history
		WHERE supplier_id = $1 ORDER BY created_at DESC, id DESC`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.AssessmentHistory
	for rows.Next() {
		h, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Storage) LatestAssessment(ctx context.Context, supplierID int64) (common.AssessmentHistory, error) {
	h, err := scanAssessment(s.conn.QueryRow(ctx, `
		SELECT `+assessmentColumns+` FROM assessment_history
		WHERE supplier_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, supplierID))
	return h, mapErr(err)
}
