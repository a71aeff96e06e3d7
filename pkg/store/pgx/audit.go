package pgx

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/traceguard/backend/pkg/common"
)

func (s *Storage) AppendAuditLog(ctx context.Context, a common.AuditLog) error {
	publicID, err := gonanoid.New()
	if err != nil {
		return err
	}
	details := a.Details
	if len(details) == 0 {
		details = []byte(`{}`)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO audit_logs (public_id, actor_id, action, resource_type, resource_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		publicID, a.ActorID, a.Action, a.ResourceType, a.ResourceID, details)
	return err
}

func (s *Storage) ListAuditLogs(ctx context.Context, limit int) ([]common.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, public_id, actor_id, action, resource_type, resource_id, details, created_at
		FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.AuditLog
	for rows.Next() {
		var a common.AuditLog
		if err := rows.Scan(&a.ID, &a.PublicID, &a.ActorID, &a.Action, &a.ResourceType, &a.ResourceID, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
