package common

import (
	"encoding/json"
	"time"
)

// Relation types form a closed vocabulary. Unknown types fall back to
// DefaultRelationWeight during scoring.
const (
	RelationOwns           = "OWNS"
	RelationControls       = "CONTROLS"
	RelationSubsidiaryOf   = "SUBSIDIARY_OF"
	RelationPartnerOf      = "PARTNER_OF"
	RelationAssociatedWith = "ASSOCIATED_WITH"
	RelationMentionedWith  = "MENTIONED_WITH"
)

// DefaultRelationWeight is the base weight applied to relation types that
// have no entry in the active trust model's weight table.
const DefaultRelationWeight = 0.3

// DefaultEdgeConfidence substitutes for edges persisted without a confidence.
const DefaultEdgeConfidence = 0.5

// DefaultRelationWeights returns the base weight per relation type used when
// no trust model config overrides them.
func DefaultRelationWeights() map[string]float64 {
	return map[string]float64{
		RelationOwns:           1.0,
		RelationControls:       0.9,
		RelationSubsidiaryOf:   0.8,
		RelationPartnerOf:      0.5,
		RelationAssociatedWith: 0.4,
		RelationMentionedWith:  0.3,
	}
}

// BaseWeight returns the base weight for a relation type, falling back to
// DefaultRelationWeight for unknown types.
func BaseWeight(relType string) float64 {
	if w, ok := DefaultRelationWeights()[relType]; ok {
		return w
	}
	return DefaultRelationWeight
}

// Entity is the single deduplicated identity representing one real-world
// organization. The normalized name is the dedup key; the canonical name is
// the original spelling seen first.
type Entity struct {
	ID             int64     `json:"id"`
	CanonicalName  string    `json:"canonical_name"`
	NormalizedName string    `json:"normalized_name"`
	EntityType     string    `json:"entity_type"`
	Country        string    `json:"country,omitempty"`
	Sanctioned     bool      `json:"sanctioned"`
	SanctionSource string    `json:"sanction_source,omitempty"`
	RiskScore      *float64  `json:"risk_score,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Alias maps an alternate name string to its owning entity. Only the
// normalized form participates in resolution lookups.
type Alias struct {
	ID              int64  `json:"id"`
	EntityID        int64  `json:"entity_id"`
	Alias           string `json:"alias"`
	NormalizedAlias string `json:"normalized_alias"`
}

// Supplier is the operator-facing record owned by the CRUD layer. The engine
// treats it as opaque input and mirrors it into the graph as a node.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Country       string    `json:"country,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	RiskScore     *float64  `json:"risk_score,omitempty"`
	OverallStatus string    `json:"overall_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SupplierEntityLink relates exactly one supplier to exactly one entity.
// At most one link exists per supplier at any time.
type SupplierEntityLink struct {
	ID               int64     `json:"id"`
	SupplierID       int64     `json:"supplier_id"`
	EntityID         int64     `json:"entity_id"`
	Confidence       float64   `json:"confidence"`
	ResolutionMethod string    `json:"resolution_method"`
	CreatedAt        time.Time `json:"created_at"`
}

// Graph node kinds.
const (
	NodeEntity   = "ENTITY"
	NodeSupplier = "SUPPLIER"
)

// Graph edge kinds.
const (
	EdgeRelation   = "RELATION"
	EdgeResolvesTo = "RESOLVES_TO"
)

// GraphNode is a node of the relationship graph, keyed by canonical name for
// entities and by display name for suppliers.
type GraphNode struct {
	Key        string    `json:"key"`
	Kind       string    `json:"kind"`
	EntityType string    `json:"entity_type,omitempty"`
	Sanctioned bool      `json:"sanctioned"`
	RiskScore  *float64  `json:"risk_score,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GraphEdge is a directed, typed, weighted edge. Relation edges are uniquely
// identified by (source, target, type); resolution edges by (source, target).
// Weight is derived: confidence times the relation type's base weight.
type GraphEdge struct {
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	Kind       string    `json:"kind"`
	Type       string    `json:"type,omitempty"`
	Confidence float64   `json:"confidence"`
	Weight     float64   `json:"weight"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TrustModelConfig is a versioned, explicitly activated parameter set for the
// propagation engine. Exactly one row is active per model name.
type TrustModelConfig struct {
	ID              int64              `json:"id"`
	ModelName       string             `json:"model_name"`
	Version         string             `json:"version"`
	DepthLimit      int                `json:"depth_limit"`
	DecayFactor     float64            `json:"decay_factor"`
	SanctionBoost   float64            `json:"sanction_boost"`
	RelationWeights map[string]float64 `json:"relation_weights"`
	Active          bool               `json:"active"`
}

// ScoringConfig holds the per-signal weights for supplier assessments.
// Exactly one row is active at a time.
type ScoringConfig struct {
	ID                      int64   `json:"id"`
	SanctionsWeight         float64 `json:"sanctions_weight"`
	ExportFailWeight        float64 `json:"export_fail_weight"`
	ExportConditionalWeight float64 `json:"export_conditional_weight"`
	Version                 string  `json:"version"`
	Active                  bool    `json:"active"`
}

// BreakdownEntry is one explainability record of a trust score computation.
// Either Depth/PathRisk or SanctionBoost is populated, never both.
type BreakdownEntry struct {
	Depth         int     `json:"depth,omitempty"`
	PathRisk      float64 `json:"path_risk,omitempty"`
	SanctionBoost float64 `json:"sanction_boost,omitempty"`
}

// TrustScoreHistory is an append-only audit record of a computed trust score.
type TrustScoreHistory struct {
	ID           int64            `json:"id"`
	PublicID     string           `json:"public_id"`
	EntityID     int64            `json:"entity_id"`
	ModelVersion string           `json:"model_version"`
	Scenario     string           `json:"scenario"`
	Score        float64          `json:"score"`
	Breakdown    []BreakdownEntry `json:"breakdown"`
	CreatedAt    time.Time        `json:"created_at"`
}

// AssessmentHistory is an append-only audit record of a supplier assessment.
type AssessmentHistory struct {
	ID             int64     `json:"id"`
	PublicID       string    `json:"public_id"`
	SupplierID     int64     `json:"supplier_id"`
	RiskScore      float64   `json:"risk_score"`
	OverallStatus  string    `json:"overall_status"`
	ScoringVersion string    `json:"scoring_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// SanctionedEntity is one row of the externally supplied sanctions list.
type SanctionedEntity struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// AuditLog is an immutable record of an operator-visible action.
type AuditLog struct {
	ID           int64           `json:"id"`
	PublicID     string          `json:"public_id"`
	ActorID      *int64          `json:"actor_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *int64          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Screening statuses shared by sanctions checks, export control evaluations
// and overall assessments.
const (
	StatusPass        = "PASS"
	StatusConditional = "CONDITIONAL"
	StatusFail        = "FAIL"
)

// SanctionMatch is one sanctions-list entry scoring at or above the match
// threshold. All matches are reported, not just the best one.
type SanctionMatch struct {
	SanctionedName string `json:"sanctioned_name"`
	Source         string `json:"source"`
	MatchScore     int    `json:"match_score"`
}

// SanctionsResult is the outcome of screening one supplier name against the
// full sanctions list.
type SanctionsResult struct {
	Supplier      string          `json:"supplier"`
	OverallStatus string          `json:"overall_status"`
	RiskScore     float64         `json:"risk_score"`
	Reason        string          `json:"reason"`
	Matches       []SanctionMatch `json:"matches"`
}

// ExportControlResult is the outcome of the external export-control
// evaluation. Degraded marks a collaborator failure treated as neutral.
type ExportControlResult struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// TrustScoreResult is the scored output of the propagation engine together
// with its explainability breakdown.
type TrustScoreResult struct {
	Score          float64          `json:"score"`
	ModelVersion   string           `json:"model_version"`
	Scenario       string           `json:"scenario"`
	Explainability []BreakdownEntry `json:"explainability"`
}

// AssessmentResult aggregates all screening signals for one supplier.
type AssessmentResult struct {
	Supplier        string               `json:"supplier"`
	OverallStatus   string               `json:"overall_status"`
	RiskScore       float64              `json:"risk_score"`
	Sanctions       *SanctionsResult     `json:"sanctions,omitempty"`
	ExportControl   *ExportControlResult `json:"export_control,omitempty"`
	NewsSignalScore float64              `json:"news_signal_score"`
	NewsDegraded    bool                 `json:"news_degraded,omitempty"`
	GraphRiskScore  float64              `json:"graph_risk_score"`
	Explanations    []string             `json:"explanations"`
	ExecutiveBrief  string               `json:"executive_brief"`
	ScoringVersion  string               `json:"scoring_version"`
}

// Risk levels for supply-chain visualization nodes.
const (
	RiskGreen  = "GREEN"
	RiskYellow = "YELLOW"
	RiskRed    = "RED"
)

// ChainNode is one node of a supplier-rooted visualization subgraph.
type ChainNode struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Tier      int     `json:"tier"`
	RiskScore float64 `json:"risk_score"`
	RiskLevel string  `json:"risk_level"`
}

// ChainLink is one edge of a supplier-rooted visualization subgraph.
type ChainLink struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// SupplyChainGraph is the bounded, tiered subgraph built for visualization,
// plus any paths reaching a sanctioned entity.
type SupplyChainGraph struct {
	Nodes         []ChainNode `json:"nodes"`
	Links         []ChainLink `json:"links"`
	SanctionPaths [][]string  `json:"sanction_paths"`
}

// EntityCandidate is an entity mention supplied by the extraction
// collaborator.
type EntityCandidate struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// RelationCandidate is a relation mention supplied by the extraction
// collaborator.
type RelationCandidate struct {
	Subject      string `json:"subject"`
	Object       string `json:"object"`
	Relationship string `json:"relationship"`
}
