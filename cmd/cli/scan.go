package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/synnergy-network/arb-engine/core"
)

//---------------------------------------------------------------------
// Controller
//---------------------------------------------------------------------

// ScanController is a thin façade over the orchestrator for one chain.
type ScanController struct{}

func (c *ScanController) RunCycle(ctx context.Context, chainID uint64, minHops, maxHops int) ([]core.OpportunityReport, error) {
	orch, err := eng.Orchestrator(chainID)
	if err != nil {
		return nil, err
	}
	tokens, err := eng.TokensFor(chainID)
	if err != nil {
		return nil, err
	}

	cfg := eng.Config
	tradeSize, _ := uint256.FromDecimal(cfg.Execution.TradeSizeWei)
	threshold, _ := uint256.FromDecimal(cfg.Execution.ProfitThresholdWei)
	ceiling, _ := uint256.FromDecimal(cfg.GasOracle.CeilingWei)
	if minHops == 0 {
		minHops = cfg.PathFinder.MinHops
	}
	if maxHops == 0 {
		maxHops = cfg.PathFinder.MaxHops
	}

	return orch.RunCycle(ctx, core.OrchestratorConfig{
		ChainID: chainID,
		Tokens:  tokens,
		PathOptions: core.PathFinderOptions{
			MinHops: minHops, MaxHops: maxHops, MaxPaths: cfg.PathFinder.MaxPaths,
		},
		TradeSizeWei:       tradeSize,
		ProfitThresholdWei: threshold,
		GasCeilingWei:      ceiling,
		MinGasConfidence:   cfg.GasOracle.MinConfidence,
	})
}

//---------------------------------------------------------------------
// Commands
//---------------------------------------------------------------------

var scanCmd = &cobra.Command{
	Use:   "scan <chain-id>",
	Short: "Run one scan cycle on a configured chain and print profitable opportunities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := parseChainID(args[0])
		if err != nil {
			return err
		}
		minHops, _ := cmd.Flags().GetInt("min-hops")
		maxHops, _ := cmd.Flags().GetInt("max-hops")

		ctrl := &ScanController{}
		reports, err := ctrl.RunCycle(cmd.Context(), chainID, minHops, maxHops)
		if err != nil {
			return err
		}
		return printOpportunities(reports)
	},
}

func init() {
	scanCmd.Flags().Int("min-hops", 0, "minimum path length (0 uses the configured default)")
	scanCmd.Flags().Int("max-hops", 0, "maximum path length (0 uses the configured default)")
}

func parseChainID(s string) (uint64, error) {
	var chainID uint64
	if _, err := fmt.Sscanf(s, "%d", &chainID); err != nil {
		return 0, fmt.Errorf("%w: invalid chain id %q", core.ErrConfig, s)
	}
	return chainID, nil
}

type opportunityView struct {
	Hops       int    `json:"hops"`
	InputWei   string `json:"input_wei"`
	OutputWei  string `json:"output_wei"`
	NetProfit  string `json:"net_profit_wei"`
	Negative   bool   `json:"net_negative"`
	Confidence float64 `json:"confidence"`
}

func printOpportunities(reports []core.OpportunityReport) error {
	views := make([]opportunityView, 0, len(reports))
	for _, r := range reports {
		views = append(views, opportunityView{
			Hops:       r.Path.Hops(),
			InputWei:   r.InputAmount.Dec(),
			OutputWei:  r.OutputAmount.Dec(),
			NetProfit:  r.NetProfit.Dec(),
			Negative:   r.NetNegative,
			Confidence: r.Confidence,
		})
	}
	enc, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
