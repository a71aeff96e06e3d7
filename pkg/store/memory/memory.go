// Package memory provides an in-memory Storage implementation with the same
// merge semantics as the Postgres backend. It backs unit tests and local
// experiments; nothing is persisted across process restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/normalize"
	"github.com/traceguard/backend/pkg/store"
)

type edgeKey struct {
	source  string
	target  string
	kind    string
	relType string
}

var _ store.Storage = (*MemoryStorage)(nil)

// MemoryStorage implements store.Storage on maps guarded by a single mutex.
type MemoryStorage struct {
	mu sync.Mutex

	nextID int64

	entities       map[int64]common.Entity
	entityByNorm   map[string]int64
	aliases        map[int64]common.Alias
	aliasByNorm    map[string]int64
	suppliers      map[int64]common.Supplier
	links          map[int64]common.SupplierEntityLink
	graphNodes     map[string]common.GraphNode
	graphEdges     map[edgeKey]common.GraphEdge
	trustModels    map[int64]common.TrustModelConfig
	scoringConfigs map[int64]common.ScoringConfig
	trustHistory   []common.TrustScoreHistory
	assessments    []common.AssessmentHistory
	sanctioned     []common.SanctionedEntity
	auditLogs      []common.AuditLog
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entities:       make(map[int64]common.Entity),
		entityByNorm:   make(map[string]int64),
		aliases:        make(map[int64]common.Alias),
		aliasByNorm:    make(map[string]int64),
		suppliers:      make(map[int64]common.Supplier),
		links:          make(map[int64]common.SupplierEntityLink),
		graphNodes:     make(map[string]common.GraphNode),
		graphEdges:     make(map[edgeKey]common.GraphEdge),
		trustModels:    make(map[int64]common.TrustModelConfig),
		scoringConfigs: make(map[int64]common.ScoringConfig),
	}
}

func (m *MemoryStorage) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStorage) EntityByNormalizedName(_ context.Context, key string) (common.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.entityByNorm[key]; ok {
		return m.entities[id], nil
	}
	return common.Entity{}, store.ErrNotFound
}

func (m *MemoryStorage) EntityByCanonicalName(_ context.Context, name string) (common.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		if e.CanonicalName == name {
			return e, nil
		}
	}
	return common.Entity{}, store.ErrNotFound
}

func (m *MemoryStorage) CreateEntity(_ context.Context, e common.Entity) (common.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Convergent create: a concurrent identical insert returns the winner.
	if id, ok := m.entityByNorm[e.NormalizedName]; ok {
		return m.entities[id], nil
	}
	e.ID = m.nextIDLocked()
	e.UpdatedAt = time.Now()
	m.entities[e.ID] = e
	m.entityByNorm[e.NormalizedName] = e.ID
	return e, nil
}

func (m *MemoryStorage) UpdateEntityRiskScore(_ context.Context, entityID int64, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[entityID]
	if !ok {
		return store.ErrNotFound
	}
	e.RiskScore = &score
	e.UpdatedAt = time.Now()
	m.entities[entityID] = e
	return nil
}

func (m *MemoryStorage) MarkEntitiesSanctioned(_ context.Context, list []common.SanctionedEntity) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var marked int64
	for _, s := range list {
		id, ok := m.entityByNorm[normalize.Name(s.Name)]
		if !ok {
			continue
		}
		e := m.entities[id]
		e.Sanctioned = true
		e.SanctionSource = s.Source
		e.UpdatedAt = time.Now()
		m.entities[id] = e
		if n, ok := m.graphNodes[e.CanonicalName]; ok {
			n.Sanctioned = true
			n.UpdatedAt = time.Now()
			m.graphNodes[e.CanonicalName] = n
		}
		marked++
	}
	return marked, nil
}

func (m *MemoryStorage) EntityByAlias(_ context.Context, normalizedAlias string) (common.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if aliasID, ok := m.aliasByNorm[normalizedAlias]; ok {
		return m.entities[m.aliases[aliasID].EntityID], nil
	}
	return common.Entity{}, store.ErrNotFound
}

func (m *MemoryStorage) CreateAlias(_ context.Context, a common.Alias) (common.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.aliasByNorm[a.NormalizedAlias]; ok {
		return m.aliases[id], nil
	}
	a.ID = m.nextIDLocked()
	m.aliases[a.ID] = a
	m.aliasByNorm[a.NormalizedAlias] = a.ID
	return a, nil
}

func (m *MemoryStorage) SupplierByID(_ context.Context, id int64) (common.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.suppliers[id]; ok {
		return s, nil
	}
	return common.Supplier{}, store.ErrNotFound
}

func (m *MemoryStorage) CreateSupplier(_ context.Context, s common.Supplier) (common.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextIDLocked()
	s.CreatedAt = time.Now()
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *MemoryStorage) ListSuppliers(_ context.Context) ([]common.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) UpdateSupplierSnapshot(_ context.Context, id int64, riskScore float64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return store.ErrNotFound
	}
	s.RiskScore = &riskScore
	s.OverallStatus = status
	m.suppliers[id] = s
	return nil
}

func (m *MemoryStorage) LinksBySupplier(_ context.Context, supplierID int64) ([]common.SupplierEntityLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.SupplierEntityLink
	for _, l := range m.links {
		if l.SupplierID == supplierID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) DeleteLink(_ context.Context, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, linkID)
	return nil
}

func (m *MemoryStorage) CreateLink(_ context.Context, l common.SupplierEntityLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// One link per (supplier, entity); a re-insert is a no-op.
	for _, existing := range m.links {
		if existing.SupplierID == l.SupplierID && existing.EntityID == l.EntityID {
			return nil
		}
	}
	l.ID = m.nextIDLocked()
	l.CreatedAt = time.Now()
	m.links[l.ID] = l
	return nil
}

func (m *MemoryStorage) UpsertGraphNode(_ context.Context, n common.GraphNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.graphNodes[n.Key]
	if !ok {
		n.UpdatedAt = time.Now()
		m.graphNodes[n.Key] = n
		return nil
	}
	current.Kind = n.Kind
	if n.EntityType != "" {
		current.EntityType = n.EntityType
	}
	current.Sanctioned = n.Sanctioned
	if n.RiskScore != nil {
		current.RiskScore = n.RiskScore
	}
	current.UpdatedAt = time.Now()
	m.graphNodes[n.Key] = current
	return nil
}

func (m *MemoryStorage) UpsertGraphEdge(_ context.Context, e common.GraphEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.UpdatedAt = time.Now()
	m.graphEdges[edgeKey{e.Source, e.Target, e.Kind, e.Type}] = e
	if _, ok := m.graphNodes[e.Source]; !ok {
		kind := common.NodeEntity
		if e.Kind == common.EdgeResolvesTo {
			kind = common.NodeSupplier
		}
		m.graphNodes[e.Source] = common.GraphNode{Key: e.Source, Kind: kind, UpdatedAt: time.Now()}
	}
	if _, ok := m.graphNodes[e.Target]; !ok {
		m.graphNodes[e.Target] = common.GraphNode{Key: e.Target, Kind: common.NodeEntity, UpdatedAt: time.Now()}
	}
	return nil
}

func (m *MemoryStorage) GraphNodes(_ context.Context, keys []string) ([]common.GraphNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.GraphNode
	for _, k := range keys {
		if n, ok := m.graphNodes[k]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryStorage) OutboundEdges(_ context.Context, sources []string) ([]common.GraphEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(sources))
	for _, s := range sources {
		want[s] = true
	}
	var out []common.GraphEdge
	for _, e := range m.graphEdges {
		if want[e.Source] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (m *MemoryStorage) UpdateGraphNodeRisk(_ context.Context, key string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.graphNodes[key]
	if !ok {
		return store.ErrNotFound
	}
	n.RiskScore = &score
	n.UpdatedAt = time.Now()
	m.graphNodes[key] = n
	return nil
}

func (m *MemoryStorage) ActiveTrustModel(_ context.Context, modelName string) (common.TrustModelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.trustModels {
		if cfg.ModelName == modelName && cfg.Active {
			return cfg, nil
		}
	}
	return common.TrustModelConfig{}, store.ErrNotFound
}

func (m *MemoryStorage) CreateTrustModel(_ context.Context, cfg common.TrustModelConfig) (common.TrustModelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Active {
		for id, existing := range m.trustModels {
			if existing.ModelName == cfg.ModelName && existing.Active {
				existing.Active = false
				m.trustModels[id] = existing
			}
		}
	}
	cfg.ID = m.nextIDLocked()
	m.trustModels[cfg.ID] = cfg
	return cfg, nil
}

func (m *MemoryStorage) ActiveScoringConfig(_ context.Context) (common.ScoringConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.scoringConfigs {
		if cfg.Active {
			return cfg, nil
		}
	}
	return common.ScoringConfig{}, store.ErrNotFound
}

func (m *MemoryStorage) CreateScoringConfig(_ context.Context, cfg common.ScoringConfig) (common.ScoringConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Active {
		for id, existing := range m.scoringConfigs {
			if existing.Active {
				existing.Active = false
				m.scoringConfigs[id] = existing
			}
		}
	}
	cfg.ID = m.nextIDLocked()
	m.scoringConfigs[cfg.ID] = cfg
	return cfg, nil
}

func (m *MemoryStorage) AppendTrustScoreHistory(_ context.Context, h common.TrustScoreHistory) (common.TrustScoreHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextIDLocked()
	h.PublicID, _ = gonanoid.New()
	h.CreatedAt = time.Now()
	m.trustHistory = append(m.trustHistory, h)
	return h, nil
}

func (m *MemoryStorage) AppendAssessmentHistory(_ context.Context, h common.AssessmentHistory) (common.AssessmentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextIDLocked()
	h.PublicID, _ = gonanoid.New()
	h.CreatedAt = time.Now()
	m.assessments = append(m.assessments, h)
	return h, nil
}

func (m *MemoryStorage) ListAssessmentHistory(_ context.Context, supplierID int64) ([]common.AssessmentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.AssessmentHistory
	for i := len(m.assessments) - 1; i >= 0; i-- {
		if m.assessments[i].SupplierID == supplierID {
			out = append(out, m.assessments[i])
		}
	}
	return out, nil
}

func (m *MemoryStorage) LatestAssessment(_ context.Context, supplierID int64) (common.AssessmentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.assessments) - 1; i >= 0; i-- {
		if m.assessments[i].SupplierID == supplierID {
			return m.assessments[i], nil
		}
	}
	return common.AssessmentHistory{}, store.ErrNotFound
}

func (m *MemoryStorage) ListSanctionedEntities(_ context.Context) ([]common.SanctionedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.SanctionedEntity, len(m.sanctioned))
	copy(out, m.sanctioned)
	return out, nil
}

func (m *MemoryStorage) ReplaceSanctionedEntities(_ context.Context, list []common.SanctionedEntity) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sanctioned = make([]common.SanctionedEntity, len(list))
	copy(m.sanctioned, list)
	for i := range m.sanctioned {
		m.sanctioned[i].ID = int64(i + 1)
	}
	return len(m.sanctioned), nil
}

func (m *MemoryStorage) AppendAuditLog(_ context.Context, a common.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextIDLocked()
	a.PublicID, _ = gonanoid.New()
	a.CreatedAt = time.Now()
	m.auditLogs = append(m.auditLogs, a)
	return nil
}

func (m *MemoryStorage) ListAuditLogs(_ context.Context, limit int) ([]common.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.AuditLog
	for i := len(m.auditLogs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.auditLogs[i])
	}
	return out, nil
}
