package pgx

import (
	"context"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/normalize"
	"github.com/traceguard/backend/pkg/store"
)

const entityColumns = `id, canonical_name, normalized_name, entity_type, country, sanctioned, sanction_source, risk_score, updated_at`

func scanEntity(row interface{ Scan(...any) error }) (common.Entity, error) {
	var e common.Entity
	err := row.Scan(
		&e.ID,
		&e.CanonicalName,
		&e.NormalizedName,
		&e.EntityType,
		&e.Country,
		&e.Sanctioned,
		&e.SanctionSource,
		&e.RiskScore,
		&e.UpdatedAt,
	)
	return e, err
}

func (s *Storage) EntityByNormalizedName(ctx context.Context, key string) (common.Entity, error) {
	e, err := scanEntity(s.conn.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE normalized_name = $1`, key))
	return e, mapErr(err)
}

func (s *Storage) EntityByCanonicalName(ctx context.Context, name string) (common.Entity, error) {
	e, err := scanEntity(s.conn.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE canonical_name = $1`, name))
	return e, mapErr(err)
}

// CreateEntity inserts an entity keyed by its normalized name. A concurrent
// insert of the same key loses the race silently and the surviving row is
// returned, so callers converge on one entity.
func (s *Storage) CreateEntity(ctx context.Context, e common.Entity) (common.Entity, error) {
	created, err := scanEntity(s.conn.QueryRow(ctx, `
		INSERT INTO entities (canonical_name, normalized_name, entity_type, country, sanctioned, sanction_source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (normalized_name) DO NOTHING
		RETURNING `+entityColumns,
		e.CanonicalName, e.NormalizedName, e.EntityType, e.Country, e.Sanctioned, e.SanctionSource,
	))
	if err == nil {
		return created, nil
	}
	// No row returned means the key already exists.
	existing, lookupErr := s.EntityByNormalizedName(ctx, e.NormalizedName)
	if lookupErr != nil {
		return common.Entity{}, fmt.Errorf("failed to create entity: %w", err)
	}
	return existing, nil
}

func (s *Storage) UpdateEntityRiskScore(ctx context.Context, entityID int64, score float64) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE entities SET risk_score = $2, updated_at = now() WHERE id = $1`, entityID, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entity %d: %w", entityID, store.ErrNotFound)
	}
	return nil
}

// MarkEntitiesSanctioned flags every registered entity whose normalized name
// matches a sanctions list row and mirrors the flag onto the graph node.
func (s *Storage) MarkEntitiesSanctioned(ctx context.Context, list []common.SanctionedEntity) (int64, error) {
	var marked int64
	for _, entry := range list {
		key := normalize.Name(entry.Name)
		if key == "" {
			continue
		}
		tag, err := s.conn.Exec(ctx, `
			UPDATE entities SET sanctioned = TRUE, sanction_source = $2, updated_at = now()
			WHERE normalized_name = $1`, key, entry.Source)
		if err != nil {
			return marked, err
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		marked += tag.RowsAffected()
		if _, err := s.conn.Exec(ctx, `
			UPDATE graph_nodes SET sanctioned = TRUE, updated_at = now()
			WHERE key IN (SELECT canonical_name FROM entities WHERE normalized_name = $1)`, key); err != nil {
			return marked, err
		}
	}
	return marked, nil
}

func (s *Storage) EntityByAlias(ctx context.Context, normalizedAlias string) (common.Entity, error) {
	e, err := scanEntity(s.conn.QueryRow(ctx, `
		SELECT `+prefixedEntityColumns("e")+`
		FROM entities e
		JOIN entity_aliases a ON a.entity_id = e.id
		WHERE a.normalized_alias = $1`, normalizedAlias))
	return e, mapErr(err)
}

// CreateAlias registers an alternate spelling. A duplicate normalized alias
// keeps the stored mapping and returns it.
func (s *Storage) CreateAlias(ctx context.Context, a common.Alias) (common.Alias, error) {
	err := s.conn.QueryRow(ctx, `
		INSERT INTO entity_aliases (entity_id, alias, normalized_alias)
		VALUES ($1, $2, $3)
		ON CONFLICT (normalized_alias) DO NOTHING
		RETURNING id, entity_id, alias, normalized_alias`,
		a.EntityID, a.Alias, a.NormalizedAlias,
	).Scan(&a.ID, &a.EntityID, &a.Alias, &a.NormalizedAlias)
	if err == nil {
		return a, nil
	}
	var existing common.Alias
	lookupErr := s.conn.QueryRow(ctx,
		`SELECT id, entity_id, alias, normalized_alias FROM entity_aliases WHERE normalized_alias = $1`,
		a.NormalizedAlias,
	).Scan(&existing.ID, &existing.EntityID, &existing.Alias, &existing.NormalizedAlias)
	if lookupErr != nil {
		return common.Alias{}, fmt.Errorf("failed to create alias: %w", err)
	}
	return existing, nil
}

func prefixedEntityColumns(alias string) string {
	return alias + `.id, ` + alias + `.canonical_name, ` + alias + `.normalized_name, ` +
		alias + `.entity_type, ` + alias + `.country, ` + alias + `.sanctioned, ` +
		alias + `.sanction_source, ` + alias + `.risk_score, ` + alias + `.updated_at`
}
