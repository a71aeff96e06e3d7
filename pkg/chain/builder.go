// Package chain builds bounded, tiered supply-chain subgraphs for
// visualization: the supplier at tier 0, its resolved entities at tier 1,
// and further relations at increasing tiers, with per-node risk colors and
// any paths that reach a sanctioned entity.
package chain

import (
	"context"
	"fmt"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/graph"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// Output bounds. Nodes and links past these are dropped in insertion order
// so oversized neighborhoods still render.
const (
	MaxNodes = 200
	MaxLinks = 400
)

// DefaultDepth is the relation traversal depth when a caller does not
// choose one.
const DefaultDepth = 2

// Builder assembles supply-chain subgraphs from persisted graph state.
type Builder struct {
	store store.Storage
}

// NewBuilder creates a subgraph builder on top of the given storage.
func NewBuilder(s store.Storage) *Builder {
	return &Builder{store: s}
}

// Build hydrates the supplier's neighborhood and assembles its subgraph.
// The supplier is keyed by id and its display name is looked up first, since
// names are the graph keys but not unique across supplier records. depth
// counts relation hops past the resolved entities; values below 1 use
// DefaultDepth.
func (b *Builder) Build(ctx context.Context, supplierID int64, depth int) (common.SupplyChainGraph, error) {
	supplier, err := b.store.SupplierByID(ctx, supplierID)
	if err != nil {
		return common.SupplyChainGraph{}, err
	}
	if depth < 1 {
		depth = DefaultDepth
	}

	// One extra level for the supplier -> entity resolution hop.
	g, err := graph.Load(ctx, b.store, supplier.Name, depth+1)
	if err != nil {
		return common.SupplyChainGraph{}, fmt.Errorf("failed to hydrate supply chain: %w", err)
	}

	out := BuildFromGraph(g, supplier.Name, depth)
	logger.Debug("[Chain] Built supply chain", "supplier", supplier.Name, "nodes", len(out.Nodes), "links", len(out.Links), "sanction_paths", len(out.SanctionPaths))
	return out, nil
}

type assembly struct {
	g     *graph.Graph
	nodes []common.ChainNode
	links []common.ChainLink
	index map[string]int
}

// BuildFromGraph assembles the subgraph from an already hydrated graph.
// A node reachable over several paths keeps the tier of the path visited
// last; tiers are a rendering hint, not a shortest-path metric.
func BuildFromGraph(g *graph.Graph, supplierName string, depth int) common.SupplyChainGraph {
	a := &assembly{g: g, index: make(map[string]int)}

	a.addNode(supplierName, 0)

	for _, e := range g.Outbound(supplierName) {
		if e.Kind != common.EdgeResolvesTo {
			continue
		}
		if !a.addLink(e) {
			break
		}
		a.expand(e.Target, 1, depth)
	}

	return common.SupplyChainGraph{
		Nodes:         a.nodes,
		Links:         a.links,
		SanctionPaths: g.SanctionPaths(supplierName, depth+1),
	}
}

func (a *assembly) expand(key string, tier, depth int) {
	revisit := a.has(key)
	if !a.addNode(key, tier) {
		return
	}
	if revisit || tier > depth {
		return
	}
	for _, e := range a.g.Outbound(key) {
		if e.Kind != common.EdgeRelation {
			continue
		}
		if !a.addLink(e) {
			return
		}
		a.expand(e.Target, tier+1, depth)
	}
}

func (a *assembly) has(key string) bool {
	_, ok := a.index[key]
	return ok
}

// addNode inserts or re-tiers a node. Returns false when the node cap is
// reached and the node could not be placed.
func (a *assembly) addNode(key string, tier int) bool {
	if i, ok := a.index[key]; ok {
		a.nodes[i].Tier = tier
		return true
	}
	if len(a.nodes) >= MaxNodes {
		return false
	}

	var (
		risk       float64
		sanctioned bool
	)
	if n, ok := a.g.Node(key); ok {
		sanctioned = n.Sanctioned
		if n.RiskScore != nil {
			risk = *n.RiskScore
		}
	}
	level := common.RiskGreen
	if tier > 0 {
		level = Classify(sanctioned, risk)
	}

	a.index[key] = len(a.nodes)
	a.nodes = append(a.nodes, common.ChainNode{
		ID:        key,
		Label:     key,
		Tier:      tier,
		RiskScore: risk,
		RiskLevel: level,
	})
	return true
}

func (a *assembly) addLink(e common.GraphEdge) bool {
	if len(a.links) >= MaxLinks {
		return false
	}
	a.links = append(a.links, common.ChainLink{
		Source:     e.Source,
		Target:     e.Target,
		Type:       e.Type,
		Confidence: e.Confidence,
	})
	return true
}

// Classify maps a node's sanction flag and cached risk score to a traffic
// light color. A sanctioned node is always RED regardless of its score.
func Classify(sanctioned bool, risk float64) string {
	if sanctioned {
		return common.RiskRed
	}
	switch {
	case risk <= 30:
		return common.RiskGreen
	case risk <= 60:
		return common.RiskYellow
	default:
		return common.RiskRed
	}
}
