// Package controllers adapts the teacher's walletserver controller shape
// (a thin struct wrapping a service, one method per route) to the relay
// admin surface: health snapshots and manual single-transaction submission for
// operators to probe relay behaviour out of band from the orchestrator.
package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/synnergy-network/arb-engine/core"
)

// RelayController exposes the private relay manager over HTTP.
type RelayController struct {
	manager *core.RelayManager
}

// NewRelayController constructs a RelayController over manager.
func NewRelayController(manager *core.RelayManager) *RelayController {
	return &RelayController{manager: manager}
}

// Health reports per-relay submission counters and availability.
func (c *RelayController) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.manager.Health())
}

// CheckHealth probes every relay with a block-number request and
// reports the refreshed availability snapshot.
func (c *RelayController) CheckHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.manager.CheckHealth(r.Context()))
}

type submitRequest struct {
	RawTxHex            string             `json:"raw_tx_hex"`
	AllowPublicFallback bool               `json:"allow_public_fallback"`
	PrivacyLevel        core.PrivacyLevel  `json:"privacy_level"`
	FastMode            bool               `json:"fast_mode"`
}

type submitResponse struct {
	Results []core.SubmitResult `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// Submit forwards one raw signed transaction to the configured relays.
func (c *RelayController) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := core.SubmitOptions{
		AllowPublicFallback: req.AllowPublicFallback,
		PrivacyLevel:        req.PrivacyLevel,
		FastMode:            req.FastMode,
	}
	results, err := c.manager.Submit(r.Context(), req.RawTxHex, opts)
	resp := submitResponse{Results: results}
	if err != nil {
		resp.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
