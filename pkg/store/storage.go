package store

import (
	"context"
	"errors"

	"github.com/traceguard/backend/pkg/common"
)

// ErrNotFound is returned when a supplier, entity or config row has no
// backing record.
var ErrNotFound = errors.New("record not found")

// ErrConfigMissing is returned when no scoring or trust model config is
// active and the lazy default could not be materialized.
var ErrConfigMissing = errors.New("no active configuration")

// Storage defines the persistence interface for the screening engine: the
// canonical entity registry, supplier links, the mirrored relationship
// graph, versioned configs, append-only histories, the sanctions list and
// the audit trail. All writes are merge/upserts so that concurrent identical
// calls converge instead of duplicating rows.
type Storage interface {
	EntityByNormalizedName(ctx context.Context, key string) (common.Entity, error)
	EntityByCanonicalName(ctx context.Context, name string) (common.Entity, error)
	CreateEntity(ctx context.Context, e common.Entity) (common.Entity, error)
	UpdateEntityRiskScore(ctx context.Context, entityID int64, score float64) error
	MarkEntitiesSanctioned(ctx context.Context, list []common.SanctionedEntity) (int64, error)

	EntityByAlias(ctx context.Context, normalizedAlias string) (common.Entity, error)
	CreateAlias(ctx context.Context, a common.Alias) (common.Alias, error)

	SupplierByID(ctx context.Context, id int64) (common.Supplier, error)
	CreateSupplier(ctx context.Context, s common.Supplier) (common.Supplier, error)
	ListSuppliers(ctx context.Context) ([]common.Supplier, error)
	UpdateSupplierSnapshot(ctx context.Context, id int64, riskScore float64, status string) error

	LinksBySupplier(ctx context.Context, supplierID int64) ([]common.SupplierEntityLink, error)
	DeleteLink(ctx context.Context, linkID int64) error
	CreateLink(ctx context.Context, l common.SupplierEntityLink) error

	UpsertGraphNode(ctx context.Context, n common.GraphNode) error
	UpsertGraphEdge(ctx context.Context, e common.GraphEdge) error
	GraphNodes(ctx context.Context, keys []string) ([]common.GraphNode, error)
	OutboundEdges(ctx context.Context, sources []string) ([]common.GraphEdge, error)
	UpdateGraphNodeRisk(ctx context.Context, key string, score float64) error

	ActiveTrustModel(ctx context.Context, modelName string) (common.TrustModelConfig, error)
	CreateTrustModel(ctx context.Context, cfg common.TrustModelConfig) (common.TrustModelConfig, error)
	ActiveScoringConfig(ctx context.Context) (common.ScoringConfig, error)
	CreateScoringConfig(ctx context.Context, cfg common.ScoringConfig) (common.ScoringConfig, error)

	AppendTrustScoreHistory(ctx context.Context, h common.TrustScoreHistory) (common.TrustScoreHistory, error)
	AppendAssessmentHistory(ctx context.Context, h common.AssessmentHistory) (common.AssessmentHistory, error)
	ListAssessmentHistory(ctx context.Context, supplierID int64) ([]common.AssessmentHistory, error)
	LatestAssessment(ctx context.Context, supplierID int64) (common.AssessmentHistory, error)

	ListSanctionedEntities(ctx context.Context) ([]common.SanctionedEntity, error)
	ReplaceSanctionedEntities(ctx context.Context, list []common.SanctionedEntity) (int, error)

	AppendAuditLog(ctx context.Context, a common.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]common.AuditLog, error)
}
