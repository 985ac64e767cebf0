package core

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestDeriveCreate2PoolAddressMatchesManualComputation(t *testing.T) {
	factory := MustParseAddress("0x000000000000000000000000000000000000000f")
	token0 := MustParseAddress("0x0000000000000000000000000000000000000001")
	token1 := MustParseAddress("0x0000000000000000000000000000000000000002")
	var initCodeHash [32]byte
	initCodeHash[0] = 0xab

	got := deriveCreate2PoolAddress(factory, token0, token1, initCodeHash)

	salt := crypto.Keccak256(append(append([]byte{}, token0[:]...), token1[:]...))
	data := append([]byte{0xff}, factory[:]...)
	data = append(data, salt...)
	data = append(data, initCodeHash[:]...)
	want := crypto.Keccak256(data)

	var wantAddr Address
	copy(wantAddr[:], want[12:])
	if got != wantAddr {
		t.Fatalf("derived address = %x, want %x", got, wantAddr)
	}
}

func TestDiscoverV2PoolsRequiresInitCodeHash(t *testing.T) {
	s := &Scanner{}
	cfg := DEXConfig{Name: "no-init-code", Protocol: ProtocolUniswapV2}
	_, _, err := s.discoverV2Pools(cfg, []tokenPair{})
	if err == nil {
		t.Fatal("expected error when InitCodeHash is nil")
	}
}

func TestDiscoverV2PoolsSortsTokensBeforeDeriving(t *testing.T) {
	s := &Scanner{}
	var hash [32]byte
	cfg := DEXConfig{Name: "v2-dex", Protocol: ProtocolUniswapV2,
		Factory: MustParseAddress("0x000000000000000000000000000000000000000f"), InitCodeHash: &hash}

	lo := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")}
	hi := TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")}

	poolsA, byPoolA, err := s.discoverV2Pools(cfg, []tokenPair{{a: lo, b: hi}})
	if err != nil {
		t.Fatalf("discoverV2Pools failed: %v", err)
	}
	poolsB, _, err := s.discoverV2Pools(cfg, []tokenPair{{a: hi, b: lo}})
	if err != nil {
		t.Fatalf("discoverV2Pools failed: %v", err)
	}
	if poolsA[0] != poolsB[0] {
		t.Fatalf("expected pair order to not affect the derived address: %x vs %x", poolsA[0], poolsB[0])
	}
	pair := byPoolA[poolsA[0]]
	if pair.a.Address != lo.Address || pair.b.Address != hi.Address {
		t.Fatalf("expected byPool entry to store tokens in sorted order, got %+v", pair)
	}
}

func TestAdmitsLiquidityNoThresholdAlwaysAdmits(t *testing.T) {
	s := &Scanner{}
	cfg := DEXConfig{Protocol: ProtocolUniswapV2}
	if !s.admitsLiquidity(cfg, uint256.NewInt(0), uint256.NewInt(0)) {
		t.Fatal("expected nil threshold to admit everything")
	}
}

func TestAdmitsLiquidityStrictlyGreaterThan(t *testing.T) {
	s := &Scanner{}
	cfg := DEXConfig{Protocol: ProtocolUniswapV2, LiquidityThreshold: uint256.NewInt(100)}
	if s.admitsLiquidity(cfg, uint256.NewInt(100), uint256.NewInt(1_000_000)) {
		t.Fatal("expected reserve0 exactly at the threshold to be rejected (strict >)")
	}
	if !s.admitsLiquidity(cfg, uint256.NewInt(101), uint256.NewInt(0)) {
		t.Fatal("expected reserve0 above the threshold to be admitted regardless of reserve1")
	}
}

func TestAdmitsLiquidityScalesV3Liquidity(t *testing.T) {
	s := &Scanner{}
	cfg := DEXConfig{Protocol: ProtocolUniswapV3, LiquidityThreshold: uint256.NewInt(100)}
	// reserve0 = 101, scaled by DefaultV3LiquidityScaleFactor (1) still admits same as V2.
	if !s.admitsLiquidity(cfg, uint256.NewInt(101), uint256.NewInt(0)) {
		t.Fatal("expected V3 liquidity measure above threshold to be admitted")
	}
	if s.admitsLiquidity(cfg, uint256.NewInt(1), uint256.NewInt(1_000_000)) {
		t.Fatal("expected V3 admission to ignore reserve1 entirely")
	}
}

func TestTokenPairsEnumeratesAllUnorderedPairs(t *testing.T) {
	tokens := []TokenRef{
		{Address: MustParseAddress("0x0000000000000000000000000000000000000001")},
		{Address: MustParseAddress("0x0000000000000000000000000000000000000002")},
		{Address: MustParseAddress("0x0000000000000000000000000000000000000003")},
	}
	pairs := tokenPairs(tokens)
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs from 3 tokens, got %d", len(pairs))
	}
}

func TestDecodeFactoryPoolAddressRoundTrip(t *testing.T) {
	want := MustParseAddress("0x0000000000000000000000000000000000000abc")
	packed, err := v3FactoryABI.Methods["getPool"].Outputs.Pack(common.Address(want))
	if err != nil {
		t.Fatalf("pack getPool output failed: %v", err)
	}
	got, err := decodeFactoryPoolAddress(packed)
	if err != nil {
		t.Fatalf("decodeFactoryPoolAddress failed: %v", err)
	}
	if got != want {
		t.Fatalf("decoded address = %x, want %x", got, want)
	}
}

func TestDiscoverV3PoolsSkipsZeroAddressResults(t *testing.T) {
	fake := &fakeChainCaller{handler: func(target common.Address, calldata []byte) ([]byte, bool) {
		out, err := v3FactoryABI.Methods["getPool"].Outputs.Pack(common.Address{})
		return out, err == nil
	}}
	s := &Scanner{batcher: NewBatcher(fake, 0)}
	cfg := DEXConfig{Name: "v3-dex", Protocol: ProtocolUniswapV3, Factory: MustParseAddress("0x000000000000000000000000000000000000000f")}

	pair := tokenPair{
		a: TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000001")},
		b: TokenRef{Address: MustParseAddress("0x0000000000000000000000000000000000000002")},
	}
	pools, _, err := s.discoverV3Pools(context.Background(), cfg, []tokenPair{pair})
	if err != nil {
		t.Fatalf("discoverV3Pools failed: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("expected zero-address pool results to be dropped, got %d", len(pools))
	}
}

func TestScanChainReturnsNilForUnregisteredChain(t *testing.T) {
	s := NewScanner(NewRegistry(nil), NewBatcher(&fakeChainCaller{}, 0), 0, nil)
	edges, err := s.ScanChain(context.Background(), 999, nil)
	if err != nil || edges != nil {
		t.Fatalf("expected (nil, nil) for a chain with no registered DEXes, got (%v, %v)", edges, err)
	}
}
