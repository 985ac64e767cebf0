package core

// graph.go – the Arbitrage Graph (C5): an adjacency index over PoolEdges
// keyed by the input token, so the path finder can step from "I hold
// token X" to "here are all pools that swap X for something else" in
// O(1). Grounded on the teacher's pattern of rebuilding an in-memory
// index wholesale on every refresh rather than mutating it incrementally
// (core/liquidity_pools.go's pool map rebuild on each sync).

import "sync"

// Graph is a directed multigraph over tokens: one node per token address,
// one edge per PoolEdge. It is rebuilt wholesale from a fresh edge list
// each scan cycle rather than patched incrementally, so readers never
// observe a graph that mixes edges from two different scan cycles.
type Graph struct {
	mu    sync.RWMutex
	index map[Address][]PoolEdge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[Address][]PoolEdge)}
}

// Rebuild replaces the entire adjacency index with the given edges.
func (g *Graph) Rebuild(edges []PoolEdge) {
	index := make(map[Address][]PoolEdge, len(edges))
	for _, e := range edges {
		index[e.TokenIn.Address] = append(index[e.TokenIn.Address], e)
	}
	g.mu.Lock()
	g.index = index
	g.mu.Unlock()
}

// Add appends a single edge to the index, for callers doing incremental
// updates outside a full Rebuild (e.g. tests).
func (g *Graph) Add(edge PoolEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index[edge.TokenIn.Address] = append(g.index[edge.TokenIn.Address], edge)
}

// Clear empties the index.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = make(map[Address][]PoolEdge)
}

// EdgesFrom returns every edge whose TokenIn is token, in insertion order.
func (g *Graph) EdgesFrom(token Address) []PoolEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.index[token]
	out := make([]PoolEdge, len(src))
	copy(out, src)
	return out
}

// Tokens returns every token address that has at least one outgoing edge,
// in no particular order.
func (g *Graph) Tokens() []Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Address, 0, len(g.index))
	for t := range g.index {
		out = append(out, t)
	}
	return out
}

// EdgeCount returns the total number of edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, edges := range g.index {
		n += len(edges)
	}
	return n
}
