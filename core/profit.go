package core

// profit.go – the profitability calculator (C7): simulates a constant-
// product swap through every hop of an ArbitragePath using exact 256-bit
// unsigned arithmetic, then nets out gas cost. Grounded on the teacher's
// core/liquidity_pools.go swap-simulation shape (getAmountOut's
// numerator/denominator form), generalized from the teacher's uint64
// amounts to *uint256.Int per spec §8's exact-arithmetic requirement.

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Calculator simulates swaps and prices arbitrage opportunities.
type Calculator struct {
	gasPriceWei *uint256.Int // wei per gas unit, supplied by the gas oracle
}

// NewCalculator constructs a Calculator against a given gas price.
func NewCalculator(gasPriceWei *uint256.Int) *Calculator {
	if gasPriceWei == nil {
		gasPriceWei = new(uint256.Int)
	}
	return &Calculator{gasPriceWei: gasPriceWei}
}

// SetGasPrice updates the gas price used by subsequent Evaluate calls.
func (c *Calculator) SetGasPrice(gasPriceWei *uint256.Int) {
	c.gasPriceWei = gasPriceWei
}

// AmountOut computes the constant-product output amount for swapping
// amountIn against (reserveIn, reserveOut) at the given fee fraction in
// [0,1), using the standard x*y=k formula with the fee taken off the
// input leg:
//
//	amountInWithFee = amountIn * (1 - fee)
//	amountOut = (amountInWithFee * reserveOut) / (reserveIn + amountInWithFee)
//
// Returns ErrOverflow if any intermediate product would overflow 256
// bits, and ErrLiquidity if either reserve is zero.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee float64) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return new(uint256.Int), nil
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: zero reserve", ErrLiquidity)
	}
	feeBps := uint64(fee * 10_000)
	if feeBps > 10_000 {
		feeBps = 10_000
	}
	feeMultiplier := uint256.NewInt(10_000 - feeBps)

	amountInWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, feeMultiplier)
	if overflow {
		return nil, fmt.Errorf("%w: amountIn * feeMultiplier overflow", ErrOverflow)
	}
	amountInWithFee.Div(amountInWithFee, uint256.NewInt(10_000))

	numerator, overflow := new(uint256.Int).MulOverflow(amountInWithFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("%w: amountInWithFee * reserveOut overflow", ErrOverflow)
	}

	denominator, overflow := new(uint256.Int).AddOverflow(reserveIn, amountInWithFee)
	if overflow {
		return nil, fmt.Errorf("%w: reserveIn + amountInWithFee overflow", ErrOverflow)
	}
	if denominator.IsZero() {
		return nil, fmt.Errorf("%w: zero effective liquidity", ErrLiquidity)
	}

	return new(uint256.Int).Div(numerator, denominator), nil
}

// Simulate runs amountIn through every hop of path in order, each hop
// consuming the previous hop's output as its input, and returns the
// final output amount. It fails closed: any hop's AmountOut error aborts
// the whole simulation.
func (c *Calculator) Simulate(path ArbitragePath, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	amount := amountIn
	for i, edge := range path.Edges {
		reserveIn, reserveOut := edge.orientedReserves()
		out, err := AmountOut(amount, reserveIn, reserveOut, edge.Fee)
		if err != nil {
			return nil, fmt.Errorf("hop %d (%s): %w", i, edge.DEXName, err)
		}
		amount = out
	}
	return amount, nil
}

// Evaluate simulates path with amountIn, prices the path's total gas
// estimate at the Calculator's current gas price, and returns a full
// OpportunityReport. Gross and net profit are reported as unsigned
// magnitudes with a paired *Negative flag rather than a signed integer,
// since *uint256.Int has no sign bit (spec §5).
func (c *Calculator) Evaluate(path ArbitragePath, amountIn *uint256.Int) (OpportunityReport, error) {
	out, err := c.Simulate(path, amountIn)
	if err != nil {
		return OpportunityReport{}, err
	}

	report := OpportunityReport{Path: path, InputAmount: amountIn, OutputAmount: out}
	if out.Gt(amountIn) {
		report.GrossProfit = new(uint256.Int).Sub(out, amountIn)
		report.GrossNegative = false
	} else {
		report.GrossProfit = new(uint256.Int).Sub(amountIn, out)
		report.GrossNegative = true
	}

	totalGas := uint64(0)
	for _, e := range path.Edges {
		totalGas += e.GasEstimate
	}
	report.GasCost = new(uint256.Int).Mul(uint256.NewInt(totalGas), c.gasPriceWei)

	if report.GrossNegative {
		report.NetProfit = new(uint256.Int).Add(report.GrossProfit, report.GasCost)
		report.NetNegative = true
	} else if report.GrossProfit.Gt(report.GasCost) || report.GrossProfit.Eq(report.GasCost) {
		report.NetProfit = new(uint256.Int).Sub(report.GrossProfit, report.GasCost)
		report.NetNegative = false
	} else {
		report.NetProfit = new(uint256.Int).Sub(report.GasCost, report.GrossProfit)
		report.NetNegative = true
	}

	report.Confidence = confidenceFor(path)
	return report, nil
}

// confidenceFor assigns a coarse confidence score based on hop count:
// more hops compound both slippage risk and the chance that a reserve
// snapshot has gone stale since it was read, so confidence decays with
// path length.
func confidenceFor(path ArbitragePath) float64 {
	switch path.Hops() {
	case 2:
		return 0.9
	case 3:
		return 0.75
	default:
		return 0.5
	}
}

// IsProfitable reports whether report clears threshold net of gas,
// i.e. NetProfit >= threshold and NetNegative is false.
func IsProfitable(report OpportunityReport, threshold *uint256.Int) bool {
	if report.NetNegative {
		return false
	}
	if threshold == nil {
		return report.NetProfit.Sign() > 0
	}
	return report.NetProfit.Gt(threshold) || report.NetProfit.Eq(threshold)
}

// MinAmountOut applies a slippage tolerance (in basis points, e.g. 50 =
// 0.5%) to an expected output amount, returning the minimum acceptable
// output for an on-chain swap call.
func MinAmountOut(expectedOut *uint256.Int, slippageBps uint64) *uint256.Int {
	if slippageBps > 10_000 {
		slippageBps = 10_000
	}
	retained := uint256.NewInt(10_000 - slippageBps)
	min := new(uint256.Int).Mul(expectedOut, retained)
	return min.Div(min, uint256.NewInt(10_000))
}
