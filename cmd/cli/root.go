// The arb-engine CLI binary. Structure of this package mirrors the
// teacher's cmd/cli/amm.go: middleware (dependency wiring), controllers
// (thin façade over core.*), command declarations, then consolidation
// under RootCmd.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	cliconfig "github.com/synnergy-network/arb-engine/cmd/config"
	"github.com/synnergy-network/arb-engine/internal/engine"
)

var (
	zapLogger *zap.Logger
	eng       *engine.Engine
)

// RootCmd is the arb-engine CLI entry point.
var RootCmd = &cobra.Command{
	Use:   "arb-engine",
	Short: "On-chain arbitrage discovery and execution engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		zapLogger, err = zap.NewProduction()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		zap.ReplaceGlobals(zapLogger)

		_ = godotenv.Load(".env")
		cliconfig.LoadConfig(viper.GetString("ENV"))
		eng, err = engine.Bootstrap(&cliconfig.AppConfig, nil)
		if err != nil {
			return fmt.Errorf("bootstrap engine: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if eng != nil {
			eng.Close()
		}
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(pathCmd)
	RootCmd.AddCommand(relayCmd)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
