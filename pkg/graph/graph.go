package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/traceguard/backend/pkg/common"
)

type edgeKey struct {
	source  string
	target  string
	kind    string
	relType string
}

// Graph is an in-process indexed adjacency structure over entity and supplier
// nodes. All mutations are merge-upserts: nodes are keyed by their stable
// name, relation edges by (source, target, type) and resolution edges by
// (source, target). Re-asserting an existing node or edge only refreshes its
// scalar fields, never creates duplicates.
//
// Mutations and traversals are safe to run concurrently. Traversals observe
// whatever state is current when they acquire the read lock; no snapshot
// isolation is provided or required.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]common.GraphNode
	out   map[string][]edgeKey
	edges map[edgeKey]common.GraphEdge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]common.GraphNode),
		out:   make(map[string][]edgeKey),
		edges: make(map[edgeKey]common.GraphEdge),
	}
}

// UpsertNode merges a node into the graph. Scalar fields of an existing node
// are overwritten; the key never changes.
func (g *Graph) UpsertNode(n common.GraphNode) {
	if n.Key == "" {
		return
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.Key] = n
}

// UpsertEdge merges a directed edge into the graph. Both endpoints are
// materialized as bare nodes if they do not exist yet, mirroring the
// MERGE-on-both-ends behavior of the persistence layer.
func (g *Graph) UpsertEdge(e common.GraphEdge) {
	if e.Source == "" || e.Target == "" {
		return
	}
	if e.Kind == "" {
		e.Kind = common.EdgeRelation
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}

	key := edgeKey{source: e.Source, target: e.Target, kind: e.Kind, relType: e.Type}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureNodeLocked(e.Source, e.Kind)
	g.ensureNodeLocked(e.Target, common.NodeEntity)

	if _, exists := g.edges[key]; !exists {
		g.out[e.Source] = append(g.out[e.Source], key)
	}
	g.edges[key] = e
}

func (g *Graph) ensureNodeLocked(key, edgeKind string) {
	if _, ok := g.nodes[key]; ok {
		return
	}
	kind := common.NodeEntity
	if edgeKind == common.EdgeResolvesTo {
		kind = common.NodeSupplier
	}
	g.nodes[key] = common.GraphNode{Key: key, Kind: kind, UpdatedAt: time.Now()}
}

// Node returns the current state of a node, if present.
func (g *Graph) Node(key string) (common.GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[key]
	return n, ok
}

// Sanctioned reports whether the node exists and is flagged sanctioned.
func (g *Graph) Sanctioned(key string) bool {
	n, ok := g.Node(key)
	return ok && n.Sanctioned
}

// RiskScore returns the node's cached risk score, or 0 if the node is absent
// or has never been scored.
func (g *Graph) RiskScore(key string) float64 {
	n, ok := g.Node(key)
	if !ok || n.RiskScore == nil {
		return 0
	}
	return *n.RiskScore
}

// Outbound returns copies of all outgoing edges of a node.
func (g *Graph) Outbound(key string) []common.GraphEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := g.out[key]
	if len(keys) == 0 {
		return nil
	}
	edges := make([]common.GraphEdge, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, g.edges[k])
	}
	return edges
}

// Nodes returns copies of all nodes, ordered by key.
func (g *Graph) Nodes() []common.GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]common.GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	return nodes
}

// Edges returns copies of all edges, ordered by source, target and type.
func (g *Graph) Edges() []common.GraphEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]common.GraphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	return edges
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Paths enumerates every directed path of 1..maxDepth RELATION edges starting
// at root. Paths are simple: a node is visited at most once per path, which
// keeps the enumeration finite on cyclic ownership structures. An isolated
// root yields an empty result, not an error.
func (g *Graph) Paths(root string, maxDepth int) [][]common.GraphEdge {
	if maxDepth <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]common.GraphEdge
	onPath := map[string]bool{root: true}
	current := make([]common.GraphEdge, 0, maxDepth)

	var walk func(node string)
	walk = func(node string) {
		for _, k := range g.out[node] {
			e := g.edges[k]
			if e.Kind != common.EdgeRelation || onPath[e.Target] {
				continue
			}

			current = append(current, e)
			paths = append(paths, append([]common.GraphEdge(nil), current...))

			if len(current) < maxDepth {
				onPath[e.Target] = true
				walk(e.Target)
				delete(onPath, e.Target)
			}
			current = current[:len(current)-1]
		}
	}
	walk(root)

	return paths
}

// SanctionPaths finds every path of at most maxDepth edges from root to a
// node flagged sanctioned, following resolution and relation edges. Each path
// is the ordered list of node keys starting at root.
func (g *Graph) SanctionPaths(root string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var found [][]string
	onPath := map[string]bool{root: true}
	trail := []string{root}

	var walk func(node string, depth int)
	walk = func(node string, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, k := range g.out[node] {
			e := g.edges[k]
			if onPath[e.Target] {
				continue
			}

			trail = append(trail, e.Target)
			if n, ok := g.nodes[e.Target]; ok && n.Sanctioned {
				found = append(found, append([]string(nil), trail...))
			}

			onPath[e.Target] = true
			walk(e.Target, depth+1)
			delete(onPath, e.Target)
			trail = trail[:len(trail)-1]
		}
	}
	walk(root, 0)

	return found
}
