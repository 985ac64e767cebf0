package core

// registry.go – the DEX Registry (C1). Maintains an immutable-after-load
// mapping from DEX name to DEXConfig. Grounded on the teacher's singleton-
// manager shape (core/liquidity_pools.go's `ammOnce sync.Once` / `Manager()`),
// generalized to an explicit handle per spec §9 ("model it as an explicit
// handle passed into every consumer; do not rely on process-wide
// singletons") rather than a package-level singleton.

import (
	"context"
	"encoding/hex"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// ContractCodeReader is the minimal capability Registry.Validate needs
// from a chain client: fetching deployed bytecode for an address. This is
// a strict subset of go-ethereum's bind.ContractCaller, so an
// *ethclient.Client satisfies it with no adapter.
type ContractCodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Registry is the DEX configuration catalog for one process. It is safe
// for concurrent read access without synchronization once construction
// (Add calls) has finished; Add itself is guarded by a mutex so that
// startup population and any later dynamic registration don't race.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]DEXConfig
	logger *log.Logger
}

// NewRegistry returns an empty registry. Callers typically follow this
// with SeedDefaults and/or a series of Add calls.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{byName: make(map[string]DEXConfig), logger: logger}
}

// Add inserts or overwrites a DEXConfig by name. Duplicate names
// overwrite the previous entry, per spec §4.1.
func (r *Registry) Add(cfg DEXConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[cfg.Name]; exists {
		r.logger.WithField("dex", cfg.Name).Warn("registry: overwriting existing DEX config")
	}
	r.byName[cfg.Name] = cfg
}

// Get looks up a single DEXConfig by name.
func (r *Registry) Get(name string) (DEXConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byName[name]
	return cfg, ok
}

// All returns every registered config, ordered by ascending Priority then
// Name (spec §4.1's iteration order).
func (r *Registry) All() []DEXConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DEXConfig, 0, len(r.byName))
	for _, cfg := range r.byName {
		out = append(out, cfg)
	}
	sortByPriorityThenName(out)
	return out
}

// ByChain filters All() to a single chain id.
func (r *Registry) ByChain(chainID uint64) []DEXConfig {
	all := r.All()
	out := make([]DEXConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.ChainID == chainID {
			out = append(out, cfg)
		}
	}
	return out
}

func sortByPriorityThenName(cfgs []DEXConfig) {
	sort.Slice(cfgs, func(i, j int) bool {
		if cfgs[i].Priority != cfgs[j].Priority {
			return cfgs[i].Priority < cfgs[j].Priority
		}
		return cfgs[i].Name < cfgs[j].Name
	})
}

// Validate performs an existence probe per entry: bytecode length > 0 for
// the router and factory addresses. A single failure does not remove the
// entry but is logged as a warning, matching spec §4.1 exactly.
func (r *Registry) Validate(ctx context.Context, client ContractCodeReader) {
	type probe struct {
		label string
		addr  Address
	}
	for _, cfg := range r.All() {
		probes := []probe{{"router", cfg.Router}, {"factory", cfg.Factory}}
		for _, p := range probes {
			if p.addr.IsZero() {
				continue
			}
			code, err := client.CodeAt(ctx, common.Address(p.addr), nil)
			if err != nil {
				r.logger.WithFields(log.Fields{"dex": cfg.Name, "field": p.label, "addr": p.addr}).
					WithError(err).Warn("registry: validation probe failed")
				continue
			}
			if len(code) == 0 {
				r.logger.WithFields(log.Fields{"dex": cfg.Name, "field": p.label, "addr": p.addr}).
					Warn("registry: no bytecode at configured address")
			}
		}
	}
}

// SeedDefaults populates the registry with one entry per protocol x chain
// from a static table. It is the Go analog of the teacher's startup
// population of pools/tokens from fixture data; here the "fixture" is the
// well-known production router/factory addresses for each protocol.
func SeedDefaults(r *Registry) {
	for _, cfg := range defaultDEXTable {
		r.Add(cfg)
	}
}

var defaultDEXTable = []DEXConfig{
	{
		Name: "uniswap-v3-mainnet", Protocol: ProtocolUniswapV3, ChainID: 1,
		Router:  MustParseAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		Factory: MustParseAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		FeeBps:  0, GasEstimate: 180_000, LiquidityThreshold: thresholdUint(1_000),
		Priority: 10,
	},
	{
		Name: "uniswap-v2-mainnet", Protocol: ProtocolUniswapV2, ChainID: 1,
		Router: MustParseAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Factory: MustParseAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		InitCodeHash: hashPtr("96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
		FeeBps: 30, GasEstimate: 150_000, LiquidityThreshold: thresholdUint(1_000),
		Priority: 20,
	},
	{
		Name: "sushiswap-mainnet", Protocol: ProtocolSushiSwap, ChainID: 1,
		Router: MustParseAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
		Factory: MustParseAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
		InitCodeHash: hashPtr("e18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c276e"),
		FeeBps: 30, GasEstimate: 150_000, LiquidityThreshold: thresholdUint(1_000),
		Priority: 30,
	},
	{
		Name: "uniswap-v3-base", Protocol: ProtocolUniswapV3, ChainID: 8453,
		Router:  MustParseAddress("0x2626664c2603336E57B271c5C0b26F421741e481"),
		Factory: MustParseAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD"),
		FeeBps: 0, GasEstimate: 180_000, LiquidityThreshold: thresholdUint(1_000),
		Priority: 10,
	},
	{
		Name: "aerodrome-base", Protocol: ProtocolAerodrome, ChainID: 8453,
		Router: MustParseAddress("0xcF77a3Ba9A5CA399B7c97c74d54e5b1Beb874E43"),
		Factory: MustParseAddress("0x420DD381b31aEf6683db6B902084cB0FFECe40Da"),
		InitCodeHash: hashPtr("eaf1c7e45c72237423d9087d5d1ad04aa8cf087738462f3b0b6e5a3e3f3d5e1f"),
		FeeBps: 5, GasEstimate: 160_000, LiquidityThreshold: thresholdUint(1_000),
		Priority: 15,
	},
}

func thresholdUint(v uint64) *uint256.Int {
	return new(uint256.Int).SetUint64(v)
}

func hashPtr(hexDigits string) *[32]byte {
	var h [32]byte
	b, err := hex.DecodeString(hexDigits)
	if err != nil {
		panic(err)
	}
	copy(h[:], b)
	return &h
}
