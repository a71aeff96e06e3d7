package pgx

import (
	"context"

	"github.com/traceguard/backend/pkg/common"
)

func (s *Storage) ListSanctionedEntities(ctx context.Context) ([]common.SanctionedEntity, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, name, source FROM sanctioned_entities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.SanctionedEntity
	for rows.Next() {
		var e common.SanctionedEntity
		if err := rows.Scan(&e.ID, &e.Name, &e.Source); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceSanctionedEntities swaps the full sanctions list in one
// transaction; readers never observe a partially loaded list.
func (s *Storage) ReplaceSanctionedEntities(ctx context.Context, list []common.SanctionedEntity) (int, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sanctioned_entities`); err != nil {
		return 0, err
	}
	for _, e := range list {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sanctioned_entities (name, source) VALUES ($1, $2)`, e.Name, e.Source); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(list), nil
}
