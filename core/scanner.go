package core

// scanner.go – the Pool Scanner (C4), the hardest subcomponent per the
// design: it must speak two structurally different pool-discovery
// dialects (V2-style CREATE2 + getReserves, V3-style factory.getPool +
// liquidity) behind one interface, while keeping RPC fan-out bounded.
//
// CREATE2 derivation is grounded on
// _examples/other_examples/a648fd4c_pulkyeet-mev-searcher__internal-arbitrage-pools.go.go's
// ComputePairAddress/sortTokens; V3 discovery and the two-ABI dispatch are
// new, driven by DEXConfig.IsV3Style. Bounded fan-out uses
// golang.org/x/sync/semaphore, matching spec §4.4's PARALLEL_LIMIT.

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultParallelLimit bounds concurrent per-DEX scan goroutines (spec
// §4.4's PARALLEL_LIMIT).
const DefaultParallelLimit = 10

const v3FactoryABIJSON = `[
  {"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},
  {"name":"fee","type":"uint24"}],"name":"getPool","outputs":[{"name":"pool","type":"address"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"slot0","outputs":[
    {"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},
    {"name":"observationIndex","type":"uint16"},{"name":"observationCardinality","type":"uint16"},
    {"name":"observationCardinalityNext","type":"uint16"},{"name":"feeProtocol","type":"uint8"},
    {"name":"unlocked","type":"bool"}],"type":"function"}
]`

var v3FactoryABI = mustParseABI(v3FactoryABIJSON)

// Scanner discovers pools for the DEXes in a Registry and reads their
// current reserves, emitting forward+reverse PoolEdge pairs admitted past
// each DEX's liquidity threshold.
type Scanner struct {
	registry      *Registry
	batcher       *Batcher
	parallelLimit int64
	logger        *log.Logger
}

// NewScanner constructs a Scanner. parallelLimit<=0 defaults to
// DefaultParallelLimit.
func NewScanner(registry *Registry, batcher *Batcher, parallelLimit int, logger *log.Logger) *Scanner {
	if parallelLimit <= 0 {
		parallelLimit = DefaultParallelLimit
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Scanner{registry: registry, batcher: batcher, parallelLimit: int64(parallelLimit), logger: logger}
}

// ScanChain discovers and reads every pool across every registered DEX on
// chainID touching the given token set, returning the admitted forward
// and reverse PoolEdges. Per-DEX failures are logged and skipped while
// any DEX yields edges; if no DEX yields an edge and at least one failed,
// the first failure is returned as a *ScanError.
func (s *Scanner) ScanChain(ctx context.Context, chainID uint64, tokens []TokenRef) ([]PoolEdge, error) {
	configs := s.registry.ByChain(chainID)
	if len(configs) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(s.parallelLimit)
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		all  []PoolEdge
		errs []error
	)

	for _, cfg := range configs {
		cfg := cfg
		if err := sem.Acquire(ctx, 1); err != nil {
			errs = append(errs, err)
			break
		}
		wg.Add(1)
		go func() {
			defer sem.Release(1)
			defer wg.Done()
			edges, err := s.scanDEX(ctx, cfg, tokens)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WithField("dex", cfg.Name).WithError(err).Warn("scanner: scan failed for DEX")
				errs = append(errs, err)
				return
			}
			all = append(all, edges...)
		}()
	}
	wg.Wait()

	if len(all) == 0 && len(errs) > 0 {
		return nil, &ScanError{Chain: chainID, Err: errs[0]}
	}
	return all, nil
}

// scanDEX discovers and reads every pool for one DEX across all unordered
// token pairs in tokens.
func (s *Scanner) scanDEX(ctx context.Context, cfg DEXConfig, tokens []TokenRef) ([]PoolEdge, error) {
	pairs := tokenPairs(tokens)
	if len(pairs) == 0 {
		return nil, nil
	}

	pools, pairByPool, err := s.discoverPools(ctx, cfg, pairs)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, nil
	}

	raw, err := s.batcher.BatchFetchPoolData(ctx, pools, cfg.IsV3Style())
	if err != nil {
		return nil, err
	}

	edges := make([]PoolEdge, 0, len(raw)*2)
	for _, rd := range raw {
		pair, ok := pairByPool[rd.Pool]
		if !ok {
			continue // defensive: shouldn't happen, discoverPools seeds this map
		}
		reserve0 := new(uint256.Int)
		reserve1 := new(uint256.Int)
		if _, overflow := reserve0.SetFromBig(rd.Reserve0); overflow {
			continue
		}
		if _, overflow := reserve1.SetFromBig(rd.Reserve1); overflow {
			continue
		}
		if !s.admitsLiquidity(cfg, reserve0, reserve1) {
			continue
		}

		t0, t1 := pair.a, pair.b
		if rd.Token0 != t0.Address {
			t0, t1 = t1, t0 // align local token refs to on-chain token0/token1 order
		}
		fee := float64(cfg.FeeBps) / 10_000.0

		edges = append(edges,
			PoolEdge{PoolAddress: rd.Pool, DEXName: cfg.Name, TokenIn: t0, TokenOut: t1,
				Reserve0: reserve0, Reserve1: reserve1, Fee: fee, GasEstimate: cfg.GasEstimate},
			PoolEdge{PoolAddress: rd.Pool, DEXName: cfg.Name, TokenIn: t1, TokenOut: t0,
				Reserve0: reserve0, Reserve1: reserve1, Fee: fee, GasEstimate: cfg.GasEstimate},
		)
	}
	return edges, nil
}

// admitsLiquidity applies the DEX's liquidity threshold as a strict
// greater-than test against reserve0 alone, the scale appropriate to the
// protocol (invariant: reserve0 > threshold_for(protocol)). V3's
// liquidity() proxy is scaled by DefaultV3LiquidityScaleFactor before
// comparison; reserve1 plays no part in the admission decision, matching
// a single-sided liquidity floor rather than a combined-reserves one.
func (s *Scanner) admitsLiquidity(cfg DEXConfig, reserve0, reserve1 *uint256.Int) bool {
	if cfg.LiquidityThreshold == nil {
		return true
	}
	measure := reserve0
	if cfg.IsV3Style() {
		measure = new(uint256.Int).Mul(reserve0, uint256.NewInt(DefaultV3LiquidityScaleFactor))
	}
	return measure.Gt(cfg.LiquidityThreshold)
}

//---------------------------------------------------------------------
// Pool discovery
//---------------------------------------------------------------------

type tokenPair struct{ a, b TokenRef }

func tokenPairs(tokens []TokenRef) []tokenPair {
	out := make([]tokenPair, 0, len(tokens)*(len(tokens)-1)/2)
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			out = append(out, tokenPair{a: tokens[i], b: tokens[j]})
		}
	}
	return out
}

// discoverPools resolves candidate pool addresses for cfg across every
// token pair, dispatching on cfg.IsV3Style(). It returns the pool address
// list plus a lookup from pool address back to the token pair, so the
// caller can reattach token identity after the batched reserve read.
func (s *Scanner) discoverPools(ctx context.Context, cfg DEXConfig, pairs []tokenPair) ([]Address, map[Address]tokenPair, error) {
	if cfg.IsV3Style() {
		return s.discoverV3Pools(ctx, cfg, pairs)
	}
	return s.discoverV2Pools(cfg, pairs)
}

// discoverV2Pools derives every pair's pool address via CREATE2 — zero
// RPC calls, matching the teacher example's ComputePairAddress.
func (s *Scanner) discoverV2Pools(cfg DEXConfig, pairs []tokenPair) ([]Address, map[Address]tokenPair, error) {
	if cfg.InitCodeHash == nil {
		return nil, nil, fmt.Errorf("%w: %s has no init code hash for CREATE2 derivation", ErrConfig, cfg.Name)
	}
	byPool := make(map[Address]tokenPair, len(pairs))
	pools := make([]Address, 0, len(pairs))
	for _, p := range pairs {
		t0, t1 := p.a, p.b
		if !isToken0(t0.Address, t1.Address) {
			t0, t1 = t1, t0
		}
		addr := deriveCreate2PoolAddress(cfg.Factory, t0.Address, t1.Address, *cfg.InitCodeHash)
		pools = append(pools, addr)
		byPool[addr] = tokenPair{a: t0, b: t1}
	}
	return pools, byPool, nil
}

// deriveCreate2PoolAddress computes keccak256(0xff ++ factory ++ salt ++
// initCodeHash)[12:], where salt = keccak256(token0 ++ token1). Tokens
// must already be sorted ascending.
func deriveCreate2PoolAddress(factory, token0, token1 Address, initCodeHash [32]byte) Address {
	salt := crypto.Keccak256(append(token0[:], token1[:]...))
	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, factory[:]...)
	data = append(data, salt...)
	data = append(data, initCodeHash[:]...)
	hash := crypto.Keccak256(data)
	var out Address
	copy(out[:], hash[12:])
	return out
}

// discoverV3Pools calls factory.getPool(tokenA, tokenB, fee) for every
// fee tier in UniswapV3FeeTiers, via the multicall batcher. A zero-address
// result means no pool exists at that fee tier and is silently dropped.
func (s *Scanner) discoverV3Pools(ctx context.Context, cfg DEXConfig, pairs []tokenPair) ([]Address, map[Address]tokenPair, error) {
	calls := make([]Call, 0, len(pairs)*len(UniswapV3FeeTiers))
	callPairs := make([]tokenPair, 0, cap(calls))
	for _, p := range pairs {
		t0, t1 := p.a, p.b
		if !isToken0(t0.Address, t1.Address) {
			t0, t1 = t1, t0
		}
		for _, fee := range UniswapV3FeeTiers {
			data, err := v3FactoryABI.Pack("getPool", t0.Address, t1.Address, fee)
			if err != nil {
				return nil, nil, fmt.Errorf("pack getPool: %w", err)
			}
			calls = append(calls, Call{Target: cfg.Factory, CallData: data})
			callPairs = append(callPairs, tokenPair{a: t0, b: t1})
		}
	}

	results, err := s.batcher.ExecuteBatch(ctx, calls)
	if err != nil {
		return nil, nil, err
	}

	byPool := make(map[Address]tokenPair, len(results))
	pools := make([]Address, 0, len(results))
	for i, r := range results {
		if !r.Success {
			continue
		}
		addr, err := decodeFactoryPoolAddress(r.ReturnData)
		if err != nil || addr.IsZero() {
			continue
		}
		pools = append(pools, addr)
		byPool[addr] = callPairs[i]
	}
	return pools, byPool, nil
}

func decodeFactoryPoolAddress(data []byte) (Address, error) {
	vals, err := v3FactoryABI.Unpack("getPool", data)
	if err != nil || len(vals) != 1 {
		return Address{}, fmt.Errorf("%w: decode getPool result", ErrProtocol)
	}
	return decodeAddressValue(vals[0])
}

func decodeAddressValue(v interface{}) (Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return Address{}, fmt.Errorf("%w: getPool result type assertion", ErrProtocol)
	}
	return Address(addr), nil
}
