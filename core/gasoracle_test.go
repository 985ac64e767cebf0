package core

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

type fakeFeeSource struct {
	tip     *big.Int
	baseFee *big.Int
	calls   int
}

func (f *fakeFeeSource) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return f.tip, nil
}

func (f *fakeFeeSource) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	f.calls++
	return &types.Header{BaseFee: f.baseFee}, nil
}

func TestGasOracleCachesWithinTTL(t *testing.T) {
	mock := clock.NewMock()
	oracle, err := NewGasOracle(4, time.Minute, mock)
	if err != nil {
		t.Fatalf("NewGasOracle failed: %v", err)
	}
	source := &fakeFeeSource{tip: big.NewInt(2_000_000_000), baseFee: big.NewInt(10_000_000_000)}

	est, err := oracle.Estimate(context.Background(), 1, source)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 header fetch, got %d", source.calls)
	}

	if _, err := oracle.Estimate(context.Background(), 1, source); err != nil {
		t.Fatalf("second Estimate failed: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cached estimate to avoid a second header fetch, got %d calls", source.calls)
	}

	wantMax := new(uint256.Int).Add(new(uint256.Int).Mul(uint256.NewInt(10_000_000_000), uint256.NewInt(2)), uint256.NewInt(2_000_000_000))
	if !est.MaxFeeWei.Eq(wantMax) {
		t.Fatalf("MaxFeeWei = %s, want %s", est.MaxFeeWei.Dec(), wantMax.Dec())
	}
}

func TestGasOracleRefreshesAfterTTL(t *testing.T) {
	mock := clock.NewMock()
	oracle, err := NewGasOracle(4, time.Minute, mock)
	if err != nil {
		t.Fatalf("NewGasOracle failed: %v", err)
	}
	source := &fakeFeeSource{tip: big.NewInt(1), baseFee: big.NewInt(1)}

	if _, err := oracle.Estimate(context.Background(), 1, source); err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	mock.Add(2 * time.Minute)
	if _, err := oracle.Estimate(context.Background(), 1, source); err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected refresh after TTL, got %d calls", source.calls)
	}
}

func TestAdmitsRespectsCeiling(t *testing.T) {
	est := GasEstimate{MaxFeeWei: uint256.NewInt(100), Confidence: 0.95}
	if !Admits(est, uint256.NewInt(100), DefaultMinConfidence) {
		t.Fatal("expected fee equal to ceiling to be admitted")
	}
	if Admits(est, uint256.NewInt(99), DefaultMinConfidence) {
		t.Fatal("expected fee above ceiling to be rejected")
	}
}

func TestAdmitsRejectsLowConfidence(t *testing.T) {
	est := GasEstimate{MaxFeeWei: uint256.NewInt(50), Confidence: 0.2}
	if Admits(est, uint256.NewInt(100), DefaultMinConfidence) {
		t.Fatal("expected an estimate below the confidence floor to be rejected even under the fee ceiling")
	}
	if !Admits(est, uint256.NewInt(100), 0) {
		t.Fatal("expected a zero minConfidence to skip the confidence gate")
	}
}
