package core

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestRegistryAddGetOverwrites(t *testing.T) {
	r := NewRegistry(nil)
	cfg := DEXConfig{Name: "test-dex", ChainID: 1, Priority: 5}
	r.Add(cfg)

	got, ok := r.Get("test-dex")
	if !ok || got.Priority != 5 {
		t.Fatalf("expected registered config, got %+v ok=%v", got, ok)
	}

	r.Add(DEXConfig{Name: "test-dex", ChainID: 1, Priority: 9})
	got, _ = r.Get("test-dex")
	if got.Priority != 9 {
		t.Fatalf("expected overwritten priority 9, got %d", got.Priority)
	}
}

func TestRegistryAllOrdersByPriorityThenName(t *testing.T) {
	r := NewRegistry(nil)
	r.Add(DEXConfig{Name: "zz", ChainID: 1, Priority: 10})
	r.Add(DEXConfig{Name: "aa", ChainID: 1, Priority: 10})
	r.Add(DEXConfig{Name: "bb", ChainID: 1, Priority: 1})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Name != "bb" || all[1].Name != "aa" || all[2].Name != "zz" {
		t.Fatalf("unexpected order: %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}
}

func TestRegistryByChainFilters(t *testing.T) {
	r := NewRegistry(nil)
	r.Add(DEXConfig{Name: "mainnet-dex", ChainID: 1})
	r.Add(DEXConfig{Name: "base-dex", ChainID: 8453})

	mainnet := r.ByChain(1)
	if len(mainnet) != 1 || mainnet[0].Name != "mainnet-dex" {
		t.Fatalf("unexpected ByChain(1) result: %+v", mainnet)
	}
}

func TestSeedDefaultsPopulatesRegistry(t *testing.T) {
	r := NewRegistry(nil)
	SeedDefaults(r)
	if len(r.All()) == 0 {
		t.Fatal("expected SeedDefaults to populate at least one entry")
	}
	if _, ok := r.Get("uniswap-v3-mainnet"); !ok {
		t.Fatal("expected uniswap-v3-mainnet in default table")
	}
}

type fakeCodeReader struct {
	code map[common.Address][]byte
}

func (f fakeCodeReader) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	return f.code[account], nil
}

func TestRegistryValidateDoesNotRemoveEntries(t *testing.T) {
	r := NewRegistry(nil)
	cfg := DEXConfig{Name: "empty-dex", ChainID: 1,
		Router:  MustParseAddress("0x0000000000000000000000000000000000000001"),
		Factory: MustParseAddress("0x0000000000000000000000000000000000000002"),
	}
	r.Add(cfg)

	r.Validate(context.Background(), fakeCodeReader{code: map[common.Address][]byte{}})

	if _, ok := r.Get("empty-dex"); !ok {
		t.Fatal("Validate must never remove entries, even when the probe finds no bytecode")
	}
}
