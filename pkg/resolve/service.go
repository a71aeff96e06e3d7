// Package resolve implements entity resolution: mapping free-form
// organization names onto deduplicated canonical entities, keeping supplier
// records linked to exactly one entity, and registering extracted relations
// on the graph.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/normalize"
	"github.com/traceguard/backend/pkg/store"
)

// Resolution methods recorded on supplier links and returned to callers.
const (
	MethodExact   = "exact"
	MethodAlias   = "alias"
	MethodCreated = "created"
)

// ErrEmptyName is returned when a name normalizes to the empty string.
var ErrEmptyName = errors.New("name normalizes to empty string")

// Resolution is the outcome of resolving one raw name.
type Resolution struct {
	Entity     common.Entity
	Confidence float64
	Method     string
}

// Service resolves names against the entity registry.
type Service struct {
	store store.Storage
}

// NewService creates a resolution service on top of the given storage.
func NewService(s store.Storage) *Service {
	return &Service{store: s}
}

// ResolveOrCreate maps a raw name to its entity. Lookup order is exact
// normalized match (confidence 1.0), then alias match (confidence 0.9); a
// miss creates a new entity whose canonical name is the original spelling.
// entityType and country only apply on creation; an empty entityType falls
// back to COMPANY, and a hit keeps the stored entity's fields. No fuzzy
// matching happens here; near-duplicate spellings become separate entities
// until an alias ties them together.
func (s *Service) ResolveOrCreate(ctx context.Context, rawName, entityType, country string) (Resolution, error) {
	key := normalize.Name(rawName)
	if key == "" {
		return Resolution{}, fmt.Errorf("%w: %q", ErrEmptyName, rawName)
	}

	entity, err := s.store.EntityByNormalizedName(ctx, key)
	if err == nil {
		return Resolution{Entity: entity, Confidence: 1.0, Method: MethodExact}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Resolution{}, fmt.Errorf("failed to look up entity: %w", err)
	}

	entity, err = s.store.EntityByAlias(ctx, key)
	if err == nil {
		return Resolution{Entity: entity, Confidence: 0.9, Method: MethodAlias}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Resolution{}, fmt.Errorf("failed to look up alias: %w", err)
	}

	if entityType = strings.ToUpper(strings.TrimSpace(entityType)); entityType == "" {
		entityType = "COMPANY"
	}
	created, err := s.store.CreateEntity(ctx, common.Entity{
		CanonicalName:  strings.TrimSpace(rawName),
		NormalizedName: key,
		EntityType:     entityType,
		Country:        strings.TrimSpace(country),
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to create entity: %w", err)
	}

	if err := s.store.UpsertGraphNode(ctx, common.GraphNode{
		Key:        created.CanonicalName,
		Kind:       common.NodeEntity,
		EntityType: created.EntityType,
		Sanctioned: created.Sanctioned,
	}); err != nil {
		logger.Warn("[Resolve] Failed to mirror new entity onto the graph", "entity", created.CanonicalName, "err", err)
	}

	logger.Debug("[Resolve] Created entity", "canonical", created.CanonicalName, "normalized", key)
	return Resolution{Entity: created, Confidence: 1.0, Method: MethodCreated}, nil
}

// ResolveSupplierEntity resolves a supplier's display name to an entity and
// enforces the one-link-per-supplier invariant: links pointing at any other
// entity are deleted, the correct link is inserted if missing, and repeated
// calls leave exactly one link in place. The supplier and its resolution are
// mirrored onto the graph.
func (s *Service) ResolveSupplierEntity(ctx context.Context, supplierID int64) (Resolution, error) {
	supplier, err := s.store.SupplierByID(ctx, supplierID)
	if err != nil {
		return Resolution{}, err
	}

	res, err := s.ResolveOrCreate(ctx, supplier.Name, "", supplier.Country)
	if err != nil {
		return Resolution{}, err
	}

	links, err := s.store.LinksBySupplier(ctx, supplierID)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load supplier links: %w", err)
	}

	haveCorrect := false
	for _, link := range links {
		if link.EntityID == res.Entity.ID {
			haveCorrect = true
			continue
		}
		if err := s.store.DeleteLink(ctx, link.ID); err != nil {
			return Resolution{}, fmt.Errorf("failed to delete stale supplier link: %w", err)
		}
		logger.Info("[Resolve] Relinked supplier", "supplier_id", supplierID, "old_entity_id", link.EntityID, "new_entity_id", res.Entity.ID)
	}
	if !haveCorrect {
		if err := s.store.CreateLink(ctx, common.SupplierEntityLink{
			SupplierID:       supplierID,
			EntityID:         res.Entity.ID,
			Confidence:       res.Confidence,
			ResolutionMethod: res.Method,
		}); err != nil {
			return Resolution{}, fmt.Errorf("failed to create supplier link: %w", err)
		}
	}

	if err := s.store.UpsertGraphNode(ctx, common.GraphNode{
		Key:  supplier.Name,
		Kind: common.NodeSupplier,
	}); err != nil {
		logger.Warn("[Resolve] Failed to mirror supplier onto the graph", "supplier", supplier.Name, "err", err)
	}
	if err := s.store.UpsertGraphEdge(ctx, common.GraphEdge{
		Source:     supplier.Name,
		Target:     res.Entity.CanonicalName,
		Kind:       common.EdgeResolvesTo,
		Confidence: res.Confidence,
	}); err != nil {
		logger.Warn("[Resolve] Failed to mirror resolution edge onto the graph", "supplier", supplier.Name, "err", err)
	}

	return res, nil
}

// AddAlias registers an alternate spelling for an entity. Registering the
// same alias twice is a no-op; the stored mapping wins.
func (s *Service) AddAlias(ctx context.Context, entityID int64, alias string) (common.Alias, error) {
	key := normalize.Name(alias)
	if key == "" {
		return common.Alias{}, fmt.Errorf("%w: %q", ErrEmptyName, alias)
	}

	created, err := s.store.CreateAlias(ctx, common.Alias{
		EntityID:        entityID,
		Alias:           strings.TrimSpace(alias),
		NormalizedAlias: key,
	})
	if err != nil {
		return common.Alias{}, fmt.Errorf("failed to create alias: %w", err)
	}
	return created, nil
}

// UpsertRelation resolves both endpoints and asserts a typed relation edge
// between their canonical names. Re-asserting an existing (source, target,
// type) merges instead of duplicating; the derived weight is the confidence
// times the relation type's base weight.
func (s *Service) UpsertRelation(ctx context.Context, subject, object, relationship string, confidence float64) error {
	from, err := s.ResolveOrCreate(ctx, subject, "", "")
	if err != nil {
		return err
	}
	to, err := s.ResolveOrCreate(ctx, object, "", "")
	if err != nil {
		return err
	}
	if from.Entity.ID == to.Entity.ID {
		return nil
	}

	relType := strings.ToUpper(strings.TrimSpace(relationship))
	if relType == "" {
		relType = common.RelationAssociatedWith
	}
	if confidence <= 0 {
		confidence = common.DefaultEdgeConfidence
	}

	if err := s.store.UpsertGraphEdge(ctx, common.GraphEdge{
		Source:     from.Entity.CanonicalName,
		Target:     to.Entity.CanonicalName,
		Kind:       common.EdgeRelation,
		Type:       relType,
		Confidence: confidence,
		Weight:     confidence * common.BaseWeight(relType),
	}); err != nil {
		return fmt.Errorf("failed to upsert relation edge: %w", err)
	}

	logger.Debug("[Resolve] Registered relation", "source", from.Entity.CanonicalName, "target", to.Entity.CanonicalName, "type", relType, "confidence", confidence)
	return nil
}
