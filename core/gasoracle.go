package core

// gasoracle.go – the Gas Oracle (C8). Grounded on the teacher's
// process-wide gas-price lookup table (core/gas_table.go's map-backed
// singleton, cited in DESIGN.md) but restructured as an explicit handle
// with a TTL cache — hashicorp/golang-lru/v2 for bounded per-chain
// storage, benbjohnson/clock for a mockable freshness clock (the same
// clock type poolstore.go uses).

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

// DefaultGasCacheTTL bounds how long a fetched gas estimate is reused
// before the oracle calls FeeSource again.
const DefaultGasCacheTTL = 12 * time.Second

// GasEstimate is a priced snapshot of one chain's current fee market.
type GasEstimate struct {
	BaseFeeWei     *uint256.Int
	PriorityFeeWei *uint256.Int
	MaxFeeWei      *uint256.Int
	Confidence     float64
	FetchedAt      time.Time
}

// FeeSource is the minimal capability the oracle needs from an RPC
// client: go-ethereum's *ethclient.Client satisfies this directly via
// SuggestGasTipCap and HeaderByNumber, with no adapter.
type FeeSource interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type cacheEntry struct {
	estimate GasEstimate
}

// GasOracle caches per-chain fee estimates behind a TTL and exposes an
// admissibility filter for opportunity evaluation.
type GasOracle struct {
	cache *lru.Cache[uint64, cacheEntry]
	ttl   time.Duration
	clock clock.Clock
}

// NewGasOracle constructs a GasOracle. maxChains bounds the LRU's entry
// count (<=0 defaults to 64, far more than any realistic deployment).
func NewGasOracle(maxChains int, ttl time.Duration, clk clock.Clock) (*GasOracle, error) {
	if maxChains <= 0 {
		maxChains = 64
	}
	if ttl <= 0 {
		ttl = DefaultGasCacheTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	cache, err := lru.New[uint64, cacheEntry](maxChains)
	if err != nil {
		return nil, fmt.Errorf("%w: gas oracle cache: %v", ErrConfig, err)
	}
	return &GasOracle{cache: cache, ttl: ttl, clock: clk}, nil
}

// Estimate returns the current gas estimate for chainID, refreshing from
// source if the cached entry (if any) has gone stale.
func (g *GasOracle) Estimate(ctx context.Context, chainID uint64, source FeeSource) (GasEstimate, error) {
	if entry, ok := g.cache.Get(chainID); ok {
		if g.clock.Now().Sub(entry.estimate.FetchedAt) < g.ttl {
			return entry.estimate, nil
		}
	}

	tip, err := source.SuggestGasTipCap(ctx)
	if err != nil {
		return GasEstimate{}, fmt.Errorf("%w: suggest gas tip cap: %v", ErrTransport, err)
	}
	header, err := source.HeaderByNumber(ctx, nil)
	if err != nil {
		return GasEstimate{}, fmt.Errorf("%w: fetch latest header: %v", ErrTransport, err)
	}

	if header.BaseFee == nil {
		return GasEstimate{}, fmt.Errorf("%w: chain has no EIP-1559 base fee", ErrProtocol)
	}
	baseFee, overflow := new(uint256.Int).SetFromBig(header.BaseFee)
	if overflow {
		return GasEstimate{}, fmt.Errorf("%w: base fee does not fit in 256 bits", ErrOverflow)
	}
	priorityFee, overflow := new(uint256.Int).SetFromBig(tip)
	if overflow {
		return GasEstimate{}, fmt.Errorf("%w: priority fee does not fit in 256 bits", ErrOverflow)
	}
	maxFee := new(uint256.Int).Add(new(uint256.Int).Mul(baseFee, uint256.NewInt(2)), priorityFee)

	est := GasEstimate{
		BaseFeeWei:     baseFee,
		PriorityFeeWei: priorityFee,
		MaxFeeWei:      maxFee,
		Confidence:     0.95,
		FetchedAt:      g.clock.Now(),
	}
	g.cache.Add(chainID, cacheEntry{estimate: est})
	return est, nil
}

// DefaultMinConfidence is the confidence floor callers pass to Admits when
// they have no floor of their own; Admits has no built-in default, and a
// minConfidence of 0 disables the check entirely.
const DefaultMinConfidence = 0.5

// Admits reports whether an estimate is fit to price an opportunity
// against: MaxFeeWei must be at or below ceiling, and Confidence must be
// at or above minConfidence. A zero minConfidence skips the confidence
// gate (useful for estimates that don't populate it, e.g. in tests).
// This is the admissibility filter consumers use to drop opportunities
// priced against a fee spike or an unreliable estimate (spec §4.8).
func Admits(est GasEstimate, ceilingWei *uint256.Int, minConfidence float64) bool {
	if minConfidence > 0 && est.Confidence < minConfidence {
		return false
	}
	if ceilingWei == nil {
		return true
	}
	return est.MaxFeeWei.Lt(ceilingWei) || est.MaxFeeWei.Eq(ceilingWei)
}

// Invalidate drops the cached entry for chainID, forcing the next
// Estimate call to refresh from source.
func (g *GasOracle) Invalidate(chainID uint64) {
	g.cache.Remove(chainID)
}
