package pgx

import (
	"context"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/store"
)

const supplierColumns = `id, name, country, industry, risk_score, overall_status, created_at`

func scanSupplier(row interface{ Scan(...any) error }) (common.Supplier, error) {
	var s common.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Country, &s.Industry, &s.RiskScore, &s.OverallStatus, &s.CreatedAt)
	return s, err
}

func (s *Storage) SupplierByID(ctx context.Context, id int64) (common.Supplier, error) {
	supplier, err := scanSupplier(s.conn.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	return supplier, mapErr(err)
}

func (s *Storage) CreateSupplier(ctx context.Context, supplier common.Supplier) (common.Supplier, error) {
	created, err := scanSupplier(s.conn.QueryRow(ctx, `
		INSERT INTO suppliers (name, country, industry)
		VALUES ($1, $2, $3)
		RETURNING `+supplierColumns,
		supplier.Name, supplier.Country, supplier.Industry,
	))
	if err != nil {
		return common.Supplier{}, fmt.Errorf("failed to create supplier: %w", err)
	}
	return created, nil
}

func (s *Storage) ListSuppliers(ctx context.Context) ([]common.Supplier, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, supplier)
	}
	return out, rows.Err()
}

func (s *Storage) UpdateSupplierSnapshot(ctx context.Context, id int64, riskScore float64, status string) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE suppliers SET risk_score = $2, overall_status = $3 WHERE id = $1`,
		id, riskScore, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("supplier %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Storage) LinksBySupplier(ctx context.Context, supplierID int64) ([]common.SupplierEntityLink, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, supplier_id, entity_id, confidence, resolution_method, created_at
		FROM supplier_entity_links WHERE supplier_id = $1 ORDER BY id`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.SupplierEntityLink
	for rows.Next() {
		var l common.SupplierEntityLink
		if err := rows.Scan(&l.ID, &l.SupplierID, &l.EntityID, &l.Confidence, &l.ResolutionMethod, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Storage) DeleteLink(ctx context.Context, linkID int64) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM supplier_entity_links WHERE id = $1`, linkID)
	return err
}

// CreateLink inserts a supplier link; re-inserting an existing
// (supplier, entity) pair is a no-op so retries converge.
func (s *Storage) CreateLink(ctx context.Context, l common.SupplierEntityLink) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO supplier_entity_links (supplier_id, entity_id, confidence, resolution_method)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (supplier_id, entity_id) DO UPDATE
		SET confidence = EXCLUDED.confidence, resolution_method = EXCLUDED.resolution_method`,
		l.SupplierID, l.EntityID, l.Confidence, l.ResolutionMethod)
	return err
}
