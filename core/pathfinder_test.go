package core

import (
	"testing"

	"github.com/holiman/uint256"
)

// buildTriangle wires tokenA -> tokenB -> tokenC -> tokenA, one pool per
// hop, so a 3-hop cycle starting at tokenA is the only valid path.
func buildTriangle(t *testing.T) (*Graph, Address) {
	t.Helper()
	g := NewGraph()
	tokenA := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	tokenB := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}
	tokenC := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000003")}
	reserve := uint256.NewInt(100_000)

	g.Rebuild([]PoolEdge{
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000011"), TokenIn: tokenA, TokenOut: tokenB, Reserve0: reserve, Reserve1: reserve},
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000012"), TokenIn: tokenB, TokenOut: tokenC, Reserve0: reserve, Reserve1: reserve},
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000013"), TokenIn: tokenC, TokenOut: tokenA, Reserve0: reserve, Reserve1: reserve},
	})
	return g, tokenA.Address
}

func TestFindCyclesFindsTriangle(t *testing.T) {
	g, start := buildTriangle(t)
	pf := NewPathFinder(g)

	paths, err := pf.FindCycles(start, PathFinderOptions{MinHops: 2, MaxHops: 3})
	if err != nil {
		t.Fatalf("FindCycles failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 cycle, got %d", len(paths))
	}
	if paths[0].Hops() != 3 {
		t.Fatalf("expected a 3-hop cycle, got %d hops", paths[0].Hops())
	}
}

func TestFindCyclesRespectsMaxHops(t *testing.T) {
	g, start := buildTriangle(t)
	pf := NewPathFinder(g)

	paths, err := pf.FindCycles(start, PathFinderOptions{MinHops: 2, MaxHops: 2})
	if err != nil {
		t.Fatalf("FindCycles failed: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no cycles within 2 hops, got %d", len(paths))
	}
}

func TestFindCyclesRejectsInvalidHopRange(t *testing.T) {
	g := NewGraph()
	pf := NewPathFinder(g)
	_, err := pf.FindCycles(Address{}, PathFinderOptions{MinHops: 5, MaxHops: 2})
	if err == nil {
		t.Fatal("expected error for max_hops < min_hops")
	}
}

func TestFindCyclesRespectsMaxPaths(t *testing.T) {
	g, start := buildTriangle(t)
	pf := NewPathFinder(g)

	paths, err := pf.FindCycles(start, PathFinderOptions{MinHops: 2, MaxHops: 3, MaxPaths: 0})
	if err != nil {
		t.Fatalf("FindCycles failed: %v", err)
	}
	if len(paths) > DefaultMaxPaths {
		t.Fatalf("expected at most %d paths, got %d", DefaultMaxPaths, len(paths))
	}
}
