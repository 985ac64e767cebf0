package core

// types.go – shared data model for the arbitrage engine: addresses, token
// references, DEX configuration, pool edges and paths. Everything here is
// a plain value type; behaviour lives in the sibling files (registry.go,
// scanner.go, graph.go, pathfinder.go, profit.go).
//
// Reserve/amount/fee math is exact 256-bit unsigned throughout – see
// profit.go – so every quantity that can appear in that math is carried as
// *uint256.Int rather than uint64 or float64.

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

//---------------------------------------------------------------------
// Address
//---------------------------------------------------------------------

// Address is a 20-byte EVM address, canonicalized to lowercase hex on
// ingress via ParseAddress.
type Address [20]byte

// ParseAddress canonicalizes a hex address string (with or without the
// "0x" prefix, any case) into an Address. Malformed input is a
// ConfigError – callers at startup should treat it as fatal; callers
// parsing RPC responses should treat it as a ProtocolError.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 40 {
		return Address{}, fmt.Errorf("%w: address %q is not 20 bytes", ErrConfig, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: address %q: %v", ErrConfig, s, err)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// MustParseAddress panics on malformed input; used only for package-level
// constants such as the Multicall3 deployment address.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

//---------------------------------------------------------------------
// TokenRef
//---------------------------------------------------------------------

// TokenRef identifies an ERC-20 token for amount<->human conversions and
// display. Decimals are required; Symbol is display-only.
type TokenRef struct {
	Address  Address
	Decimals uint8
	Symbol   string
}

//---------------------------------------------------------------------
// Protocol tags
//---------------------------------------------------------------------

// Protocol is the fixed set of DEX protocol families the engine knows how
// to read. New protocols are added here and in isV3Style below, not
// by branching on string names at call sites.
type Protocol string

const (
	ProtocolUniswapV2 Protocol = "UniswapV2"
	ProtocolUniswapV3 Protocol = "UniswapV3"
	ProtocolSushiSwap Protocol = "SushiSwap"
	ProtocolAerodrome Protocol = "Aerodrome"
	ProtocolCurve     Protocol = "Curve"
	ProtocolBalancer  Protocol = "Balancer"
	ProtocolSolidly   Protocol = "Solidly/Velodrome"
)

// isV3Style reports whether a protocol uses per-fee-tier pools discovered
// via factory.getPool(tokenA, tokenB, fee) and liquidity()/slot0() reads,
// as opposed to V2-style getReserves()/CREATE2 pools. This is the single
// branch point the scanner keys off of (via DEXConfig.IsV3Style).
func isV3Style(p Protocol) bool {
	switch p {
	case ProtocolUniswapV3:
		return true
	default:
		return false
	}
}

// UniswapV3FeeTiers are the fee tiers (in hundredths of a bip) the scanner
// probes for every V3-style DEX and token pair.
var UniswapV3FeeTiers = []uint32{100, 500, 3000, 10000}

// DefaultV3LiquidityScaleFactor calibrates V3's raw `liquidity()` proxy
// (L, where x*y = L^2) against V2-denominated reserve thresholds. It is a
// calibration value, not a derived formula; it is 1 (no scaling), and no
// configuration key overrides it.
const DefaultV3LiquidityScaleFactor = 1

//---------------------------------------------------------------------
// DEXConfig
//---------------------------------------------------------------------

// DEXConfig is immutable once loaded into the registry.
type DEXConfig struct {
	Name               string
	Protocol           Protocol
	ChainID            uint64
	Router             Address
	Factory            Address
	InitCodeHash       *[32]byte // nil unless pool addresses are CREATE2-derivable
	FeeBps             uint32
	GasEstimate        uint64
	LiquidityThreshold *uint256.Int
	Priority           uint32
}

// IsV3Style is a convenience wrapper so callers don't need to import the
// unexported dispatch function.
func (c DEXConfig) IsV3Style() bool { return isV3Style(c.Protocol) }

//---------------------------------------------------------------------
// PoolEdge
//---------------------------------------------------------------------

// PoolEdge is one directed swap possibility on one pool. Two PoolEdges
// (forward and reverse) are emitted per discovered pool; invariant 2
// requires PoolAddress/reserves/Fee to be identical across that pair.
type PoolEdge struct {
	PoolAddress Address
	DEXName     string
	TokenIn     TokenRef
	TokenOut    TokenRef
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
	Fee         float64 // in [0,1)
	GasEstimate uint64
}

// orientedReserves returns (reserveIn, reserveOut) for this edge: if
// TokenIn is the pool's token0 then Reserve0 is reserveIn, else swapped.
// token0 is always the lexicographically-sorted-lower address, matching
// how the scanner assigns Reserve0/Reserve1.
func (e PoolEdge) orientedReserves() (reserveIn, reserveOut *uint256.Int) {
	if isToken0(e.TokenIn.Address, e.TokenOut.Address) {
		return e.Reserve0, e.Reserve1
	}
	return e.Reserve1, e.Reserve0
}

func isToken0(a, b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return true
}

//---------------------------------------------------------------------
// ArbitragePath
//---------------------------------------------------------------------

// ArbitragePath is an ordered, cyclic sequence of PoolEdges: each edge's
// TokenOut feeds the next edge's TokenIn, and the last edge's TokenOut
// equals the first edge's TokenIn. Length is bounded by max_hops.
type ArbitragePath struct {
	Edges []PoolEdge
}

// Validate checks the structural invariants from spec §3/§8: token
// continuity, cyclicity, and no repeated pool address.
func (p ArbitragePath) Validate() error {
	if len(p.Edges) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvariant)
	}
	seen := make(map[Address]struct{}, len(p.Edges))
	for i, e := range p.Edges {
		if _, dup := seen[e.PoolAddress]; dup {
			return fmt.Errorf("%w: pool %s reused in path", ErrInvariant, e.PoolAddress)
		}
		seen[e.PoolAddress] = struct{}{}
		if i > 0 && p.Edges[i-1].TokenOut.Address != e.TokenIn.Address {
			return fmt.Errorf("%w: edge %d token mismatch", ErrInvariant, i)
		}
	}
	first, last := p.Edges[0], p.Edges[len(p.Edges)-1]
	if first.TokenIn.Address != last.TokenOut.Address {
		return fmt.Errorf("%w: path is not cyclic", ErrInvariant)
	}
	return nil
}

func (p ArbitragePath) Hops() int { return len(p.Edges) }

func (p ArbitragePath) StartToken() Address { return p.Edges[0].TokenIn.Address }

//---------------------------------------------------------------------
// OpportunityReport
//---------------------------------------------------------------------

// OpportunityReport is a simulated arbitrage opportunity: a path plus the
// amounts and profit figures computed by the profitability calculator.
type OpportunityReport struct {
	Path         ArbitragePath
	InputAmount  *uint256.Int
	OutputAmount *uint256.Int
	GrossProfit  *uint256.Int // magnitude; sign carried separately in GrossNegative
	GrossNegative bool
	GasCost      *uint256.Int
	NetProfit    *uint256.Int
	NetNegative  bool
	Confidence   float64
}

//---------------------------------------------------------------------
// CachedPoolEntry
//---------------------------------------------------------------------

// CachedPoolEntry is a PoolEdge payload with a monotonic creation
// timestamp. The pool store does not use it; Store caches each chain's
// edges as a chainEdges value.
type CachedPoolEntry struct {
	Edge        PoolEdge
	TimestampMs int64
}
