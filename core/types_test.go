package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestParseAddressRoundTrip(t *testing.T) {
	const raw = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	addr, err := ParseAddress(raw)
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if got := addr.String(); got != "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2" {
		t.Fatalf("unexpected canonical form: %s", got)
	}
}

func TestParseAddressRejectsBadLength(t *testing.T) {
	_, err := ParseAddress("0x1234")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestAddressIsZero(t *testing.T) {
	var a Address
	if !a.IsZero() {
		t.Fatal("zero-value Address should be IsZero")
	}
	nonZero := MustParseAddress("0x0000000000000000000000000000000000000001")
	if nonZero.IsZero() {
		t.Fatal("non-zero Address reported IsZero")
	}
}

func TestArbitragePathValidateRejectsEmpty(t *testing.T) {
	var p ArbitragePath
	if err := p.Validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for empty path, got %v", err)
	}
}

func TestArbitragePathValidateRejectsPoolReuse(t *testing.T) {
	tokenA := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	tokenB := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}
	pool := MustParseAddress("0x0000000000000000000000000000000000000003")
	reserve := uint256.NewInt(1000)

	edge1 := PoolEdge{PoolAddress: pool, TokenIn: tokenA, TokenOut: tokenB, Reserve0: reserve, Reserve1: reserve}
	edge2 := PoolEdge{PoolAddress: pool, TokenIn: tokenB, TokenOut: tokenA, Reserve0: reserve, Reserve1: reserve}

	p := ArbitragePath{Edges: []PoolEdge{edge1, edge2}}
	if err := p.Validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for reused pool, got %v", err)
	}
}

func TestArbitragePathValidateAcceptsCycle(t *testing.T) {
	tokenA := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	tokenB := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}
	tokenC := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000003")}
	reserve := uint256.NewInt(1000)

	p := ArbitragePath{Edges: []PoolEdge{
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000011"), TokenIn: tokenA, TokenOut: tokenB, Reserve0: reserve, Reserve1: reserve},
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000012"), TokenIn: tokenB, TokenOut: tokenC, Reserve0: reserve, Reserve1: reserve},
		{PoolAddress: MustParseAddress("0x0000000000000000000000000000000000000013"), TokenIn: tokenC, TokenOut: tokenA, Reserve0: reserve, Reserve1: reserve},
	}}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid cycle, got %v", err)
	}
	if p.Hops() != 3 {
		t.Fatalf("expected 3 hops, got %d", p.Hops())
	}
	if p.StartToken() != tokenA.Address {
		t.Fatalf("expected start token %s, got %s", tokenA.Address, p.StartToken())
	}
}
