package pgx

import (
	"context"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/store"
)

// UpsertGraphNode merges a node onto the persisted graph. Scalar fields are
// last-write-wins; an unset risk score never clears a cached one.
func (s *Storage) UpsertGraphNode(ctx context.Context, n common.GraphNode) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO graph_nodes (key, kind, entity_type, sanctioned, risk_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (key) DO UPDATE SET
			kind = EXCLUDED.kind,
			entity_type = CASE WHEN EXCLUDED.entity_type <> '' THEN EXCLUDED.entity_type ELSE graph_nodes.entity_type END,
			sanctioned = EXCLUDED.sanctioned,
			risk_score = COALESCE(EXCLUDED.risk_score, graph_nodes.risk_score),
			updated_at = now()`,
		n.Key, n.Kind, n.EntityType, n.Sanctioned, n.RiskScore)
	return err
}

// UpsertGraphEdge merges an edge on its identity (source, target, kind,
// type) and materializes missing endpoint nodes so the edge is always
// traversable.
func (s *Storage) UpsertGraphEdge(ctx context.Context, e common.GraphEdge) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sourceKind := common.NodeEntity
	if e.Kind == common.EdgeResolvesTo {
		sourceKind = common.NodeSupplier
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO graph_nodes (key, kind) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`, e.Source, sourceKind); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO graph_nodes (key, kind) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`, e.Target, common.NodeEntity); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO graph_edges (source, target, kind, rel_type, confidence, weight, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (source, target, kind, rel_type) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			weight = EXCLUDED.weight,
			updated_at = now()`,
		e.Source, e.Target, e.Kind, e.Type, e.Confidence, e.Weight); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Storage) GraphNodes(ctx context.Context, keys []string) ([]common.GraphNode, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, kind, entity_type, sanctioned, risk_score, updated_at
		FROM graph_nodes WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.GraphNode
	for rows.Next() {
		var n common.GraphNode
		if err := rows.Scan(&n.Key, &n.Kind, &n.EntityType, &n.Sanctioned, &n.RiskScore, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Storage) OutboundEdges(ctx context.Context, sources []string) ([]common.GraphEdge, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT source, target, kind, rel_type, confidence, weight, updated_at
		FROM graph_edges WHERE source = ANY($1)
		ORDER BY source, target, rel_type`, sources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.GraphEdge
	for rows.Next() {
		var e common.GraphEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind, &e.Type, &e.Confidence, &e.Weight, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Storage) UpdateGraphNodeRisk(ctx context.Context, key string, score float64) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE graph_nodes SET risk_score = $2, updated_at = now() WHERE key = $1`, key, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("graph node %q: %w", key, store.ErrNotFound)
	}
	return nil
}
