// cmd/relayserver is the admin surface for the private relay manager:
// relay health/stats and manual single-transaction submission, separate from the
// discovery-facing arbserver. Grounded on the teacher's
// walletserver/main.go (mux.NewRouter + routes.Register + ListenAndServe)
// almost unchanged beyond the controller it wires.
package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	cliconfig "github.com/synnergy-network/arb-engine/cmd/config"
	"github.com/synnergy-network/arb-engine/cmd/relayserver/controllers"
	"github.com/synnergy-network/arb-engine/cmd/relayserver/routes"
	"github.com/synnergy-network/arb-engine/internal/engine"
	"github.com/synnergy-network/arb-engine/pkg/utils"
)

func main() {
	_ = godotenv.Load(".env")
	cliconfig.LoadConfig(os.Getenv("ARB_ENV"))

	eng, err := engine.Bootstrap(&cliconfig.AppConfig, nil)
	if err != nil {
		logrus.Fatalf("bootstrap engine: %v", err)
	}
	defer eng.Close()

	ctrl := controllers.NewRelayController(eng.RelayManager)

	r := mux.NewRouter()
	routes.Register(r, ctrl)

	addr := utils.EnvOrDefault("RELAY_API_ADDR", "127.0.0.1:8091")
	logrus.Infof("relayserver listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logrus.Fatal(err)
	}
}
