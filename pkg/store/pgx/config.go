package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
)

func (s *Storage) ActiveTrustModel(ctx context.Context, modelName string) (common.TrustModelConfig, error) {
	var (
		cfg     common.TrustModelConfig
		weights []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, model_name, version, depth_limit, decay_factor, sanction_boost, relation_weights, active
		FROM trust_model_configs WHERE model_name = $1 AND active`, modelName,
	).Scan(&cfg.ID, &cfg.ModelName, &cfg.Version, &cfg.DepthLimit, &cfg.DecayFactor, &cfg.SanctionBoost, &weights, &cfg.Active)
	if err != nil {
		return common.TrustModelConfig{}, mapErr(err)
	}
	if err := json.Unmarshal(weights, &cfg.RelationWeights); err != nil {
		return common.TrustModelConfig{}, fmt.Errorf("failed to decode relation weights: %w", err)
	}
	return cfg, nil
}

// CreateTrustModel inserts a config row. An active row deactivates any
// previously active row for the same model name inside one transaction, so
// exactly one stays active.
func (s *Storage) CreateTrustModel(ctx context.Context, cfg common.TrustModelConfig) (common.TrustModelConfig, error) {
	weights, err := json.Marshal(cfg.RelationWeights)
	if err != nil {
		return common.TrustModelConfig{}, fmt.Errorf("failed to encode relation weights: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.TrustModelConfig{}, err
	}
	defer tx.Rollback(ctx)

	if cfg.Active {
		if _, err := tx.Exec(ctx,
			`UPDATE trust_model_configs SET active = FALSE WHERE model_name = $1 AND active`, cfg.ModelName); err != nil {
			return common.TrustModelConfig{}, err
		}
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO trust_model_configs (model_name, version, depth_limit, decay_factor, sanction_boost, relation_weights, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		cfg.ModelName, cfg.Version, cfg.DepthLimit, cfg.DecayFactor, cfg.SanctionBoost, weights, cfg.Active,
	).Scan(&cfg.ID); err != nil {
		return common.TrustModelConfig{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.TrustModelConfig{}, err
	}
	return cfg, nil
}

func (s *Storage) ActiveScoringConfig(ctx context.Context) (common.ScoringConfig, error) {
	var cfg common.ScoringConfig
	err := s.conn.QueryRow(ctx, `
		SELECT id, sanctions_weight, export_fail_weight, export_conditional_weight, version, active
		FROM scoring_configs WHERE active`,
	).Scan(&cfg.ID, &cfg.SanctionsWeight, &cfg.ExportFailWeight, &cfg.ExportConditionalWeight, &cfg.Version, &cfg.Active)
	if err != nil {
		return common.ScoringConfig{}, mapErr(err)
	}
	return cfg, nil
}

// CreateScoringConfig inserts a config row, deactivating the previously
// active one when the new row is active.
func (s *Storage) CreateScoringConfig(ctx context.Context, cfg common.ScoringConfig) (common.ScoringConfig, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.ScoringConfig{}, err
	}
	defer tx.Rollback(ctx)

	if cfg.Active {
		if _, err := tx.Exec(ctx, `UPDATE scoring_configs SET active = FALSE WHERE active`); err != nil {
			return common.ScoringConfig{}, err
		}
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO scoring_configs (sanctions_weight, export_fail_weight, export_conditional_weight, version, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		cfg.SanctionsWeight, cfg.ExportFailWeight, cfg.ExportConditionalWeight, cfg.Version, cfg.Active,
	).Scan(&cfg.ID); err != nil {
		return common.ScoringConfig{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.ScoringConfig{}, err
	}
	return cfg, nil
}
