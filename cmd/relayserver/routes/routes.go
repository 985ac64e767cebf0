package routes

import (
	"github.com/gorilla/mux"

	"github.com/synnergy-network/arb-engine/cmd/relayserver/controllers"
	"github.com/synnergy-network/arb-engine/cmd/relayserver/middleware"
)

// Register mounts the relay admin surface onto r, mirroring the
// teacher's walletserver/routes/routes.go Register shape.
func Register(r *mux.Router, rc *controllers.RelayController) {
	r.Use(middleware.Logger)
	r.HandleFunc("/api/relay/health", rc.Health).Methods("GET")
	r.HandleFunc("/api/relay/health/check", rc.CheckHealth).Methods("POST")
	r.HandleFunc("/api/relay/submit", rc.Submit).Methods("POST")
}
