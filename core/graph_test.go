package core

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestGraphRebuildReplacesIndex(t *testing.T) {
	g := NewGraph()
	tokenA := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	tokenB := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}
	reserve := uint256.NewInt(1000)

	edge := PoolEdge{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000011"),
		TokenIn: tokenA, TokenOut: tokenB, Reserve0: reserve, Reserve1: reserve}
	g.Rebuild([]PoolEdge{edge})

	if got := g.EdgesFrom(tokenA.Address); len(got) != 1 {
		t.Fatalf("expected 1 edge from tokenA, got %d", len(got))
	}

	g.Rebuild(nil)
	if got := g.EdgesFrom(tokenA.Address); len(got) != 0 {
		t.Fatalf("expected graph to be empty after rebuild with no edges, got %d", len(got))
	}
}

func TestGraphAddAndClear(t *testing.T) {
	g := NewGraph()
	tokenA := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	tokenB := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}
	reserve := uint256.NewInt(1000)

	g.Add(PoolEdge{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000011"),
		TokenIn: tokenA, TokenOut: tokenB, Reserve0: reserve, Reserve1: reserve})

	if g.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", g.EdgeCount())
	}
	g.Clear()
	if g.EdgeCount() != 0 {
		t.Fatalf("expected 0 edges after Clear, got %d", g.EdgeCount())
	}
}
