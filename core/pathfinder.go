package core

// pathfinder.go – the Path Finder (C6): bounded depth-first enumeration
// of cyclic token paths through the Graph, starting and ending at the
// same token. Grounded on the teacher's recursive graph-walk shape in
// core/amm.go (a visited-set DFS over pool adjacency), generalized here
// from a fixed-length triangular walk to an arbitrary min/max-hop cyclic
// search with a hard cap on total paths emitted.

import "fmt"

// DefaultMaxPaths bounds the number of paths a single FindCycles call
// will emit, regardless of how large the graph or max_hops is (spec
// §4.5's safety valve against combinatorial blowup).
const DefaultMaxPaths = 10_000

// PathFinderOptions configures one FindCycles call.
type PathFinderOptions struct {
	MinHops  int // inclusive; defaults to 2 if <= 0
	MaxHops  int // inclusive; defaults to 3 if <= 0
	MaxPaths int // defaults to DefaultMaxPaths if <= 0
}

func (o PathFinderOptions) normalize() PathFinderOptions {
	out := o
	if out.MinHops <= 0 {
		out.MinHops = 2
	}
	if out.MaxHops <= 0 {
		out.MaxHops = 3
	}
	if out.MaxPaths <= 0 {
		out.MaxPaths = DefaultMaxPaths
	}
	return out
}

// PathFinder enumerates cyclic ArbitragePaths over a Graph.
type PathFinder struct {
	graph *Graph
}

// NewPathFinder constructs a PathFinder bound to graph.
func NewPathFinder(graph *Graph) *PathFinder {
	return &PathFinder{graph: graph}
}

// FindCycles enumerates every cycle starting and ending at start, with
// length in [opts.MinHops, opts.MaxHops], via depth-first search.
// A pool address may not be reused within one path (invariant 2), but an
// intermediate token may be visited more than once; the
// walk stops early once opts.MaxPaths paths have been collected, in
// DFS-stable (deterministic, edge-insertion-order) order.
func (f *PathFinder) FindCycles(start Address, opts PathFinderOptions) ([]ArbitragePath, error) {
	opts = opts.normalize()
	if opts.MinHops < 2 {
		return nil, fmt.Errorf("%w: min_hops must be >= 2, got %d", ErrConfig, opts.MinHops)
	}
	if opts.MaxHops < opts.MinHops {
		return nil, fmt.Errorf("%w: max_hops (%d) must be >= min_hops (%d)", ErrConfig, opts.MaxHops, opts.MinHops)
	}

	d := &dfsWalk{
		graph:      f.graph,
		start:      start,
		minHops:    opts.MinHops,
		maxHops:    opts.MaxHops,
		maxPaths:   opts.MaxPaths,
		visitedPool: make(map[Address]struct{}),
	}
	d.walk(start, nil)
	return d.results, nil
}

type dfsWalk struct {
	graph       *Graph
	start       Address
	minHops     int
	maxHops     int
	maxPaths    int
	visitedPool map[Address]struct{}
	current     []PoolEdge
	results     []ArbitragePath
}

func (d *dfsWalk) walk(token Address, _ []PoolEdge) {
	if len(d.results) >= d.maxPaths {
		return
	}
	hops := len(d.current)
	if hops >= d.minHops && token == d.start {
		d.emit()
		return
	}
	if hops >= d.maxHops {
		return
	}
	for _, edge := range d.graph.EdgesFrom(token) {
		if len(d.results) >= d.maxPaths {
			return
		}
		if _, used := d.visitedPool[edge.PoolAddress]; used {
			continue
		}
		// Allow revisiting the start token only as the closing hop; any
		// other intermediate revisit would make the path non-simple.
		if edge.TokenOut.Address == d.start && hops+1 < d.minHops {
			continue
		}
		d.visitedPool[edge.PoolAddress] = struct{}{}
		d.current = append(d.current, edge)

		d.walk(edge.TokenOut.Address, nil)

		d.current = d.current[:len(d.current)-1]
		delete(d.visitedPool, edge.PoolAddress)
	}
}

func (d *dfsWalk) emit() {
	edges := make([]PoolEdge, len(d.current))
	copy(edges, d.current)
	path := ArbitragePath{Edges: edges}
	if err := path.Validate(); err != nil {
		return // defensive: should be unreachable given the walk's own bookkeeping
	}
	d.results = append(d.results, path)
}
