package core

// multicall.go – the Multicall Batcher (C2). Wraps the Multicall3
// contract's aggregate3 function to collapse many read-only eth_call
// invocations into a single RPC round trip.
//
// ABI pack/unpack follows the idiom from
// _examples/other_examples/a648fd4c_pulkyeet-mev-searcher__internal-arbitrage-pools.go.go
// (abi.JSON + Pack/Unpack against a hand-written ABI fragment), generalized
// from a single getReserves() call to Multicall3's aggregate3 batching.

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Multicall3Address is the canonical cross-chain deployment address of
// the Multicall3 contract (spec §6).
var Multicall3Address = MustParseAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABIJSON = `[
  {"inputs":[{"components":[{"internalType":"address","name":"target","type":"address"},
  {"internalType":"bool","name":"allowFailure","type":"bool"},
  {"internalType":"bytes","name":"callData","type":"bytes"}],
  "internalType":"struct Multicall3.Call3[]","name":"calls","type":"tuple[]"}],
  "name":"aggregate3","outputs":[{"components":[{"internalType":"bool","name":"success","type":"bool"},
  {"internalType":"bytes","name":"returnData","type":"bytes"}],
  "internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],
  "stateMutability":"payable","type":"function"}
]`

var multicall3ABI = mustParseABI(multicall3ABIJSON)

func mustParseABI(j string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(j))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Call is one read-only contract call to batch.
type Call struct {
	Target   Address
	CallData []byte
}

// CallResult is the outcome of one batched Call. A failed transport-level
// batch sets Success=false on every slot; an individual call revert sets
// Success=false on that slot only. Callers must treat a false Success as
// "unknown, skip" rather than inspect ReturnData.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// ChainCaller is the minimal capability the batcher needs from an RPC
// client: a raw eth_call against a target with calldata, and the ability
// to read bytecode to implement IsAvailable. It is exactly
// go-ethereum's bind.ContractCaller, so *ethclient.Client satisfies it
// directly with no adapter.
type ChainCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Batcher wraps Multicall3 aggregate3 calls with internal sub-batching.
type Batcher struct {
	client    ChainCaller
	batchSize int
}

// NewBatcher constructs a Batcher. batchSize<=0 defaults to 100 per spec
// §4.2.
func NewBatcher(client ChainCaller, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Batcher{client: client, batchSize: batchSize}
}

// IsAvailable reports whether Multicall3 has non-empty bytecode on the
// current chain.
func (b *Batcher) IsAvailable(ctx context.Context) bool {
	code, err := b.client.CodeAt(ctx, common.Address(Multicall3Address), nil)
	return err == nil && len(code) > 0
}

// ExecuteBatch aggregates calls via aggregate3, splitting internally into
// sub-batches of b.batchSize and concatenating results in order. An empty
// call list returns an empty result slice without any RPC call (spec §8
// boundary behavior).
func (b *Batcher) ExecuteBatch(ctx context.Context, calls []Call) ([]CallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]CallResult, 0, len(calls))
	for start := 0; start < len(calls); start += b.batchSize {
		end := start + b.batchSize
		if end > len(calls) {
			end = len(calls)
		}
		sub, err := b.executeSubBatch(ctx, calls[start:end])
		if err != nil {
			// transport-level failure: every slot in this sub-batch (and
			// therefore every slot we haven't produced yet) is unknown.
			failed := make([]CallResult, len(calls)-start)
			out = append(out, failed...)
			return out, fmt.Errorf("%w: multicall sub-batch [%d:%d]: %v", ErrTransport, start, end, err)
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (b *Batcher) executeSubBatch(ctx context.Context, calls []Call) ([]CallResult, error) {
	type call3 struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	packedCalls := make([]call3, len(calls))
	for i, c := range calls {
		packedCalls[i] = call3{Target: common.Address(c.Target), AllowFailure: true, CallData: c.CallData}
	}
	data, err := multicall3ABI.Pack("aggregate3", packedCalls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	mc3 := common.Address(Multicall3Address)
	ret, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &mc3, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	unpacked, err := multicall3ABI.Unpack("aggregate3", ret)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack aggregate3: %v", ErrProtocol, err)
	}
	if len(unpacked) != 1 {
		return nil, fmt.Errorf("%w: unexpected aggregate3 unpack length %d", ErrProtocol, len(unpacked))
	}

	raw, ok := unpacked[0].([]struct {
		Success    bool
		ReturnData []byte
	})
	if !ok {
		return nil, fmt.Errorf("%w: aggregate3 result type assertion failed", ErrProtocol)
	}
	results := make([]CallResult, len(raw))
	for i, r := range raw {
		results[i] = CallResult{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

//---------------------------------------------------------------------
// batch_fetch_pool_data
//---------------------------------------------------------------------

const erc20PairABIJSON = `[
  {"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"getReserves","outputs":[
    {"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"liquidity","outputs":[{"name":"","type":"uint128"}],"type":"function"}
]`

var pairABI = mustParseABI(erc20PairABIJSON)

// RawPoolData is the decoded result of one pool's token0/token1/reserves
// (or liquidity, for V3) triple of sub-calls.
type RawPoolData struct {
	Pool      Address
	Token0    Address
	Token1    Address
	Reserve0  *big.Int // V2: reserve0; V3: liquidity (proxy, see isV3)
	Reserve1  *big.Int // V2: reserve1; V3: liquidity (proxy, see isV3)
}

// BatchFetchPoolData emits three sub-calls per pool — token0(), token1(),
// and either getReserves() (V2) or liquidity() (V3) — decodes the tuple,
// and drops any pool where any sub-call failed. Per spec §4.2, a missing
// slot means "unknown, skip", never a zero value.
func (b *Batcher) BatchFetchPoolData(ctx context.Context, pools []Address, isV3 bool) ([]RawPoolData, error) {
	if len(pools) == 0 {
		return nil, nil
	}
	token0Data, err := pairABI.Pack("token0")
	if err != nil {
		return nil, fmt.Errorf("pack token0: %w", err)
	}
	token1Data, err := pairABI.Pack("token1")
	if err != nil {
		return nil, fmt.Errorf("pack token1: %w", err)
	}
	var reserveData []byte
	reserveMethod := "getReserves"
	if isV3 {
		reserveMethod = "liquidity"
	}
	reserveData, err = pairABI.Pack(reserveMethod)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", reserveMethod, err)
	}

	calls := make([]Call, 0, len(pools)*3)
	for _, p := range pools {
		calls = append(calls,
			Call{Target: p, CallData: token0Data},
			Call{Target: p, CallData: token1Data},
			Call{Target: p, CallData: reserveData},
		)
	}

	results, err := b.ExecuteBatch(ctx, calls)
	if err != nil {
		return nil, err
	}

	out := make([]RawPoolData, 0, len(pools))
	for i, p := range pools {
		r0, r1, r2 := results[i*3], results[i*3+1], results[i*3+2]
		if !r0.Success || !r1.Success || !r2.Success {
			continue // per-pool failure: unknown, skip
		}
		token0, err := decodeAddress(r0.ReturnData)
		if err != nil {
			continue
		}
		token1, err := decodeAddress(r1.ReturnData)
		if err != nil {
			continue
		}
		var reserve0, reserve1 *big.Int
		if isV3 {
			liq, err := decodeUint(r2.ReturnData)
			if err != nil {
				continue
			}
			reserve0, reserve1 = liq, liq
		} else {
			a, c, err := decodeReserves(r2.ReturnData)
			if err != nil {
				continue
			}
			reserve0, reserve1 = a, c
		}
		out = append(out, RawPoolData{Pool: p, Token0: token0, Token1: token1, Reserve0: reserve0, Reserve1: reserve1})
	}
	return out, nil
}

func decodeAddress(data []byte) (Address, error) {
	vals, err := pairABI.Unpack("token0", data)
	if err != nil || len(vals) != 1 {
		return Address{}, fmt.Errorf("%w: decode address", ErrProtocol)
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return Address{}, fmt.Errorf("%w: address type assertion", ErrProtocol)
	}
	return Address(addr), nil
}

func decodeUint(data []byte) (*big.Int, error) {
	vals, err := pairABI.Unpack("liquidity", data)
	if err != nil || len(vals) != 1 {
		return nil, fmt.Errorf("%w: decode uint", ErrProtocol)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: uint type assertion", ErrProtocol)
	}
	return v, nil
}

func decodeReserves(data []byte) (*big.Int, *big.Int, error) {
	vals, err := pairABI.Unpack("getReserves", data)
	if err != nil || len(vals) != 3 {
		return nil, nil, fmt.Errorf("%w: decode reserves", ErrProtocol)
	}
	r0, ok0 := vals[0].(*big.Int)
	r1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("%w: reserves type assertion", ErrProtocol)
	}
	return r0, r1, nil
}
