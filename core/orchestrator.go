package core

// orchestrator.go – the Orchestrator (C10): drives one full scan cycle
// (pool store refresh -> graph rebuild -> path search -> profitability
// filter -> gas admission) and tracks cumulative cycle statistics.
// Grounded on the teacher's top-level sync-loop shape (a single struct
// holding every subsystem handle, with one exported method driving a
// cycle end to end and a counters struct for introspection) rather than
// a package-level singleton, per spec §9's explicit-handle directive.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// OrchestratorConfig bundles the tunables one scan cycle needs.
type OrchestratorConfig struct {
	ChainID           uint64
	Tokens            []TokenRef
	PathOptions       PathFinderOptions
	TradeSizeWei      *uint256.Int
	ProfitThresholdWei *uint256.Int
	GasCeilingWei     *uint256.Int
	MinGasConfidence  float64
}

// CycleStats accumulates counters across every RunCycle call.
type CycleStats struct {
	mu                  sync.Mutex
	Cycles              uint64
	EdgesScanned        uint64
	PathsFound          uint64 // every simulated path, regardless of outcome
	ProfitableBeforeGas uint64 // cleared IsProfitable, before the gas-ceiling/confidence filter
	OpportunitiesNet    uint64 // survived both the profitability and gas admission filters
	BlockedByValidation uint64 // dropped by calc.Evaluate (overflow, illiquidity, malformed path)
	LastCycleAt         time.Time
	LastError           string
}

func (s *CycleStats) recordCycle(edges, paths, profitableBeforeGas, profitable, blocked int, cycleErr error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cycles++
	s.EdgesScanned += uint64(edges)
	s.PathsFound += uint64(paths)
	s.ProfitableBeforeGas += uint64(profitableBeforeGas)
	s.OpportunitiesNet += uint64(profitable)
	s.BlockedByValidation += uint64(blocked)
	s.LastCycleAt = at
	if cycleErr != nil {
		s.LastError = cycleErr.Error()
	} else {
		s.LastError = ""
	}
}

// Snapshot returns a copy of the current counters, safe to read
// concurrently with RunCycle (used by the metrics endpoint).
func (s *CycleStats) Snapshot() CycleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CycleStats{
		Cycles: s.Cycles, EdgesScanned: s.EdgesScanned, PathsFound: s.PathsFound,
		ProfitableBeforeGas: s.ProfitableBeforeGas, OpportunitiesNet: s.OpportunitiesNet,
		BlockedByValidation: s.BlockedByValidation, LastCycleAt: s.LastCycleAt, LastError: s.LastError,
	}
}

// Orchestrator wires together every subsystem for one chain's scan-to-
// decision pipeline. It holds no global state of its own; callers own
// its lifetime explicitly (construct, run cycles, discard).
type Orchestrator struct {
	store      *Store
	scanner    *Scanner
	graph      *Graph
	pathfinder *PathFinder
	calc       *Calculator
	gasOracle  *GasOracle
	feeSource  FeeSource
	logger     *log.Logger
	stats      CycleStats
}

// NewOrchestrator wires the given subsystem handles into one pipeline.
func NewOrchestrator(store *Store, scanner *Scanner, graph *Graph, pathfinder *PathFinder,
	calc *Calculator, gasOracle *GasOracle, feeSource FeeSource, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Orchestrator{
		store: store, scanner: scanner, graph: graph, pathfinder: pathfinder,
		calc: calc, gasOracle: gasOracle, feeSource: feeSource, logger: logger,
	}
}

// RunCycle executes one full scan-to-opportunities pass for cfg.ChainID:
// refresh the pool store (sharing an in-flight refresh if one is
// already running), rebuild the graph, enumerate cycles from every
// configured token, price each, apply the gas admission filter, and
// return the opportunities that clear cfg.ProfitThresholdWei.
func (o *Orchestrator) RunCycle(ctx context.Context, cfg OrchestratorConfig) ([]OpportunityReport, error) {
	startedAt := time.Now()
	tokenAddrs := make([]Address, len(cfg.Tokens))
	for i, t := range cfg.Tokens {
		tokenAddrs[i] = t.Address
	}

	edges, err := o.store.GetOrRefresh(cfg.ChainID, tokenAddrs, func() ([]PoolEdge, error) {
		return o.scanner.ScanChain(ctx, cfg.ChainID, cfg.Tokens)
	})
	if err != nil {
		o.stats.recordCycle(0, 0, 0, 0, 0, err, startedAt)
		return nil, fmt.Errorf("orchestrator: scan chain %d: %w", cfg.ChainID, err)
	}
	o.graph.Rebuild(edges)

	gasEst, err := o.gasOracle.Estimate(ctx, cfg.ChainID, o.feeSource)
	if err != nil {
		o.logger.WithError(err).Warn("orchestrator: gas oracle unavailable, proceeding without fee admission")
	}

	tradeSize := cfg.TradeSizeWei
	if tradeSize == nil {
		tradeSize = uint256.NewInt(1)
	}
	if gasEst.MaxFeeWei != nil {
		o.calc.SetGasPrice(gasEst.MaxFeeWei)
	}

	var opportunities []OpportunityReport
	var totalPaths, profitableBeforeGas, blockedByValidation int
	for _, t := range cfg.Tokens {
		paths, err := o.pathfinder.FindCycles(t.Address, cfg.PathOptions)
		if err != nil {
			o.logger.WithField("token", t.Address).WithError(err).Warn("orchestrator: path search failed")
			continue
		}
		totalPaths += len(paths)
		for _, path := range paths {
			report, err := o.calc.Evaluate(path, tradeSize)
			if err != nil {
				blockedByValidation++ // dropped: unsafe/overflowing/illiquid path
				continue
			}
			if !IsProfitable(report, cfg.ProfitThresholdWei) {
				continue
			}
			profitableBeforeGas++
			if gasEst.MaxFeeWei != nil && !Admits(gasEst, cfg.GasCeilingWei, cfg.MinGasConfidence) {
				continue
			}
			opportunities = append(opportunities, report)
		}
	}

	o.stats.recordCycle(len(edges), totalPaths, profitableBeforeGas, len(opportunities), blockedByValidation, nil, startedAt)
	return opportunities, nil
}

// Stats returns a snapshot of cumulative cycle counters.
func (o *Orchestrator) Stats() CycleStats {
	return o.stats.Snapshot()
}
