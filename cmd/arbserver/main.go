// cmd/arbserver is the HTTP front end for the arbitrage engine: it
// exposes discovered opportunities, Prometheus metrics, and a health
// check. Grounded on the teacher's cmd/dexserver/main.go (config load,
// wire one core subsystem, mount one handler, ListenAndServe) but
// generalized to chi routing and graceful shutdown per spec §9's
// ambient-stack expansion.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	cliconfig "github.com/synnergy-network/arb-engine/cmd/config"
	"github.com/synnergy-network/arb-engine/core"
	"github.com/synnergy-network/arb-engine/internal/engine"
	"github.com/synnergy-network/arb-engine/pkg/utils"
)

func main() {
	logger := log.New()
	_ = godotenv.Load(".env")
	cliconfig.LoadConfig(os.Getenv("ARB_ENV"))

	eng, err := engine.Bootstrap(&cliconfig.AppConfig, logger)
	if err != nil {
		logger.Fatalf("bootstrap engine: %v", err)
	}
	defer eng.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/opportunities/{chainId}", opportunitiesHandler(eng, logger))

	addr := utils.EnvOrDefault("ARB_API_ADDR", "127.0.0.1:8090")
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Infof("arbserver listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type opportunityResponse struct {
	Hops       int     `json:"hops"`
	InputWei   string  `json:"input_wei"`
	OutputWei  string  `json:"output_wei"`
	NetProfit  string  `json:"net_profit_wei"`
	Negative   bool    `json:"net_negative"`
	Confidence float64 `json:"confidence"`
}

func opportunitiesHandler(eng *engine.Engine, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chainIDParam := chi.URLParam(r, "chainId")
		chainID, err := core.ParseChainIDParam(chainIDParam)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		orch, err := eng.Orchestrator(chainID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		tokens, err := eng.TokensFor(chainID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		cfg := eng.Config
		tradeSize := core.DefaultTradeSize(cfg.Execution.TradeSizeWei)
		threshold := core.DefaultTradeSize(cfg.Execution.ProfitThresholdWei)
		gasCeiling := core.DefaultTradeSize(cfg.GasOracle.CeilingWei)

		reports, err := orch.RunCycle(r.Context(), core.OrchestratorConfig{
			ChainID:            chainID,
			Tokens:             tokens,
			PathOptions:        core.PathFinderOptions{MinHops: cfg.PathFinder.MinHops, MaxHops: cfg.PathFinder.MaxHops, MaxPaths: cfg.PathFinder.MaxPaths},
			TradeSizeWei:       tradeSize,
			ProfitThresholdWei: threshold,
			GasCeilingWei:      gasCeiling,
			MinGasConfidence:   cfg.GasOracle.MinConfidence,
		})
		if err != nil {
			logger.WithError(err).Warn("arbserver: scan cycle failed")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		out := make([]opportunityResponse, 0, len(reports))
		for _, rep := range reports {
			out = append(out, opportunityResponse{
				Hops: rep.Path.Hops(), InputWei: rep.InputAmount.Dec(), OutputWei: rep.OutputAmount.Dec(),
				NetProfit: rep.NetProfit.Dec(), Negative: rep.NetNegative, Confidence: rep.Confidence,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
