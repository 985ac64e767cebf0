package core

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// fakeChainCaller simulates Multicall3's aggregate3 by unpacking the call
// list and re-dispatching each sub-call to a handler table keyed by
// target+selector, so tests never need a live RPC endpoint.
type fakeChainCaller struct {
	codeAt  map[common.Address][]byte
	handler func(target common.Address, calldata []byte) ([]byte, bool)
	failNext bool
}

func (f *fakeChainCaller) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	return f.codeAt[account], nil
}

func (f *fakeChainCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.failNext {
		return nil, errors.New("simulated transport failure")
	}
	calls, err := unpackAggregate3Calls(msg.Data)
	if err != nil {
		return nil, err
	}
	type result struct {
		Success    bool
		ReturnData []byte
	}
	results := make([]result, len(calls))
	for i, c := range calls {
		ret, ok := f.handler(c.Target, c.CallData)
		results[i] = result{Success: ok, ReturnData: ret}
	}
	return multicall3ABI.Methods["aggregate3"].Outputs.Pack(results)
}

// unpackAggregate3Calls decodes the calldata a real aggregate3 call would
// carry, for the fake's own dispatch. It reuses multicall3ABI's method
// definition by re-parsing the packed input with the 4-byte selector
// stripped.
func unpackAggregate3Calls(data []byte) ([]Call, error) {
	method := multicall3ABI.Methods["aggregate3"]
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	raw := args[0].([]struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	})
	out := make([]Call, len(raw))
	for i, r := range raw {
		out[i] = Call{Target: Address(r.Target), CallData: r.CallData}
	}
	return out, nil
}

func TestBatcherIsAvailable(t *testing.T) {
	fake := &fakeChainCaller{codeAt: map[common.Address][]byte{
		common.Address(Multicall3Address): {0x60, 0x80},
	}}
	b := NewBatcher(fake, 0)
	if !b.IsAvailable(context.Background()) {
		t.Fatal("expected multicall to be available when bytecode is present")
	}
}

func TestBatcherExecuteBatchEmpty(t *testing.T) {
	b := NewBatcher(&fakeChainCaller{}, 0)
	results, err := b.ExecuteBatch(context.Background(), nil)
	if err != nil || results != nil {
		t.Fatalf("expected (nil, nil) for empty batch, got (%v, %v)", results, err)
	}
}

func TestBatcherExecuteBatchTransportFailure(t *testing.T) {
	fake := &fakeChainCaller{failNext: true, handler: func(common.Address, []byte) ([]byte, bool) { return nil, false }}
	b := NewBatcher(fake, 0)

	results, err := b.ExecuteBatch(context.Background(), []Call{{Target: Address{}, CallData: []byte{0x01}}})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected one unknown/false slot, got %+v", results)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// fakePool holds the decoded state a simulated V2 pair would answer
// token0()/token1()/getReserves() calls with.
type fakePool struct {
	token0, token1     common.Address
	reserve0, reserve1 *big.Int
}

func poolHandler(pools map[common.Address]fakePool) func(common.Address, []byte) ([]byte, bool) {
	return func(target common.Address, calldata []byte) ([]byte, bool) {
		p, ok := pools[target]
		if !ok || len(calldata) < 4 {
			return nil, false
		}
		selector := calldata[:4]
		switch {
		case string(selector) == string(pairABI.Methods["token0"].ID):
			out, err := pairABI.Methods["token0"].Outputs.Pack(p.token0)
			return out, err == nil
		case string(selector) == string(pairABI.Methods["token1"].ID):
			out, err := pairABI.Methods["token1"].Outputs.Pack(p.token1)
			return out, err == nil
		case string(selector) == string(pairABI.Methods["getReserves"].ID):
			out, err := pairABI.Methods["getReserves"].Outputs.Pack(p.reserve0, p.reserve1, uint32(0))
			return out, err == nil
		default:
			return nil, false
		}
	}
}

func TestBatchFetchPoolDataDecodesV2Pools(t *testing.T) {
	pool := MustParseAddress("0x0000000000000000000000000000000000000099")
	token0 := MustParseAddress("0x0000000000000000000000000000000000000001")
	token1 := MustParseAddress("0x0000000000000000000000000000000000000002")

	pools := map[common.Address]fakePool{
		common.Address(pool): {
			token0: common.Address(token0), token1: common.Address(token1),
			reserve0: big.NewInt(1_000_000), reserve1: big.NewInt(2_000_000),
		},
	}
	fake := &fakeChainCaller{handler: poolHandler(pools)}
	b := NewBatcher(fake, 0)

	out, err := b.BatchFetchPoolData(context.Background(), []Address{pool}, false)
	if err != nil {
		t.Fatalf("BatchFetchPoolData failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 decoded pool, got %d", len(out))
	}
	if out[0].Token0 != token0 || out[0].Token1 != token1 {
		t.Fatalf("unexpected token pair: %+v", out[0])
	}
	if out[0].Reserve0.Cmp(big.NewInt(1_000_000)) != 0 || out[0].Reserve1.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("unexpected reserves: %+v", out[0])
	}
}

func TestBatchFetchPoolDataSkipsPoolsWithFailedSubCalls(t *testing.T) {
	// pool is absent from the handler's table, so every sub-call for it
	// reports success=false via the fake's success bool.
	missing := MustParseAddress("0x0000000000000000000000000000000000000077")
	fake := &fakeChainCaller{handler: poolHandler(map[common.Address]fakePool{})}
	b := NewBatcher(fake, 0)

	out, err := b.BatchFetchPoolData(context.Background(), []Address{missing}, false)
	if err != nil {
		t.Fatalf("BatchFetchPoolData failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected pool with failed sub-calls to be skipped, got %d", len(out))
	}
}
