package core

// relay.go – the Private Relay Manager (C9). Submits signed transactions
// (or bundles) through an ordered list of private-relay endpoints with
// preferred/priority ordering, privacy-level relay selection, fast-mode
// failover, and an optional public-RPC last resort. Grounded on the
// teacher's ordered-provider-with-failover shape (walletserver's
// multi-endpoint broadcast loop, generalized here from wallet broadcast
// to MEV-aware relay submission); bundle IDs use google/uuid per spec
// §6's correlation-id requirement.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RelayKind tags the submission channel a RelayConfig represents.
type RelayKind string

const (
	RelayFlashbotsProtect RelayKind = "flashbots-protect"
	RelayMEVShare         RelayKind = "mev-share"
	RelayBuilderRPC       RelayKind = "builder-rpc"
	RelayBloxroute        RelayKind = "bloxroute"
	RelayPublicRPC        RelayKind = "public-rpc"
)

// PrivacyLevel selects how wide a relay set Submit/SubmitBundle may draw
// from, independent of the transport-specific RelayKind tag.
type PrivacyLevel string

const (
	PrivacyNone     PrivacyLevel = ""
	PrivacyBasic    PrivacyLevel = "basic"
	PrivacyEnhanced PrivacyLevel = "enhanced"
	PrivacyMaximum  PrivacyLevel = "maximum"
)

// privacyRelayKinds maps a privacy level to the relay kinds eligible to
// carry it. PrivacyNone imposes no restriction (every configured kind,
// subject to AllowPublicFallback). Basic restricts to Flashbots-style
// protect relays; Enhanced widens to MEV-Share, builder and bloXroute
// relays; Maximum
// narrows to builder-only relays, since only a direct builder
// relationship avoids any public mempool exposure.
var privacyRelayKinds = map[PrivacyLevel][]RelayKind{
	PrivacyBasic:    {RelayFlashbotsProtect},
	PrivacyEnhanced: {RelayMEVShare, RelayBuilderRPC, RelayBloxroute},
	PrivacyMaximum:  {RelayBuilderRPC},
}

// RelayConfig describes one submission endpoint.
type RelayConfig struct {
	Name      string
	Kind      RelayKind
	Endpoint  string
	Preferred bool // hoisted to the front of the attempt order, ahead of Priority
	Priority  int  // lower attempted first among non-preferred relays
	AuthKey   string // sent verbatim as the Authorization header value (no "Bearer " prefix) when non-empty; bloXroute requires this
	Enabled   bool
}

// SubmitOptions controls one Submit call.
type SubmitOptions struct {
	PrivacyLevel        PrivacyLevel
	AllowPublicFallback bool
	Timeout             time.Duration
	// FastMode, when true, keeps trying subsequent relays after a failed
	// attempt. The default (false) stops at the first failure so a caller
	// sees exactly one attempt before deciding on a resubmission strategy.
	FastMode bool
}

// BundleOptions controls one SubmitBundle call.
type BundleOptions struct {
	SubmitOptions
	TargetBlock       uint64
	MinTimestamp      int64
	MaxTimestamp      int64
	RevertingTxHashes []string
}

// SubmitResult records the outcome of one relay attempt within a Submit
// call, kept in attempt order for auditability.
type SubmitResult struct {
	Relay   string
	Success bool
	Err     error
}

type relayStats struct {
	mu                 sync.Mutex
	totalSubmissions   uint64
	successfulInclusions uint64
	failedSubmissions  uint64
	totalInclusionMs   uint64 // sum of latencies over successful inclusions, for the running average
	lastSubmission     time.Time
	lastError          error
	isAvailable        bool
}

// RelayManager submits transactions/bundles through a configured set of
// relays with ordered fallback.
type RelayManager struct {
	relays []RelayConfig
	http   *http.Client
	logger *log.Logger

	statsMu sync.Mutex
	stats   map[string]*relayStats
}

// NewRelayManager constructs a RelayManager over the enabled subset of
// relays, ordered preferred-first then ascending Priority (stable
// otherwise). Disabled entries are recorded nowhere and never attempted.
func NewRelayManager(relays []RelayConfig, httpClient *http.Client, logger *log.Logger) *RelayManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	ordered := orderRelays(enabledOnly(relays))
	stats := make(map[string]*relayStats, len(ordered))
	for _, r := range ordered {
		stats[r.Name] = &relayStats{isAvailable: true}
	}
	return &RelayManager{relays: ordered, http: httpClient, logger: logger, stats: stats}
}

func enabledOnly(relays []RelayConfig) []RelayConfig {
	out := make([]RelayConfig, 0, len(relays))
	for _, r := range relays {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

func orderRelays(relays []RelayConfig) []RelayConfig {
	ordered := make([]RelayConfig, len(relays))
	copy(ordered, relays)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Preferred != ordered[j].Preferred {
			return ordered[i].Preferred
		}
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// selectRelays narrows m.relays (already preferred/priority ordered) to
// the subset eligible for opts.PrivacyLevel and opts.AllowPublicFallback.
func (m *RelayManager) selectRelays(opts SubmitOptions) []RelayConfig {
	kinds, restricted := privacyRelayKinds[opts.PrivacyLevel]
	out := make([]RelayConfig, 0, len(m.relays))
	for _, relay := range m.relays {
		if relay.Kind == RelayPublicRPC {
			if !opts.AllowPublicFallback {
				continue
			}
			out = append(out, relay)
			continue
		}
		if restricted && !kindIn(kinds, relay.Kind) {
			continue
		}
		out = append(out, relay)
	}
	return out
}

func kindIn(kinds []RelayKind, kind RelayKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Submit sends rawTxHex (0x-prefixed hex-encoded signed transaction)
// through the relay list per opts. By default (opts.FastMode == false)
// it stops after the first failed attempt, returning that attempt's
// error; set FastMode to keep trying subsequent relays until one
// succeeds or the list is exhausted.
func (m *RelayManager) Submit(ctx context.Context, rawTxHex string, opts SubmitOptions) ([]SubmitResult, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "eth_sendRawTransaction",
		"params":  []string{rawTxHex},
		"id":      1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal submission body: %v", ErrSubmission, err)
	}

	relays := m.selectRelays(opts)
	results := make([]SubmitResult, 0, len(relays))
	for _, relay := range relays {
		res := m.attempt(ctx, relay, body, opts.Timeout)
		results = append(results, res)
		if res.Success {
			return results, nil
		}
		if !opts.FastMode {
			return results, fmt.Errorf("%w: relay %s refused submission: %v", ErrSubmission, relay.Name, res.Err)
		}
	}
	return results, fmt.Errorf("%w: all relays refused submission", ErrSubmission)
}

// bundleMethod returns the JSON-RPC method a relay kind expects its
// bundle submissions under.
func bundleMethod(kind RelayKind) string {
	switch kind {
	case RelayMEVShare:
		return "mev_sendBundle"
	case RelayBloxroute:
		return "blxr_bundle"
	default:
		return "eth_sendBundle"
	}
}

func bundleBody(rawTxsHex []string, bundleID string, relay RelayConfig, opts BundleOptions) ([]byte, error) {
	params := map[string]any{
		"txs":        rawTxsHex,
		"bundleUuid": bundleID,
	}
	if opts.TargetBlock > 0 {
		params["blockNumber"] = fmt.Sprintf("0x%x", opts.TargetBlock)
	}
	if opts.MinTimestamp > 0 {
		params["minTimestamp"] = opts.MinTimestamp
	}
	if opts.MaxTimestamp > 0 {
		params["maxTimestamp"] = opts.MaxTimestamp
	}
	if len(opts.RevertingTxHashes) > 0 {
		params["revertingTxHashes"] = opts.RevertingTxHashes
	}
	return json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  bundleMethod(relay.Kind),
		"params":  []map[string]any{params},
		"id":      1,
	})
}

// SubmitBundle submits a bundle of raw transactions (in execution order)
// with a fresh correlation id, dispatching each relay's attempt under
// the JSON-RPC method its kind expects (see bundleMethod), and returning
// that id alongside the per-relay attempt results. Every kind receives
// the same parameter object (txs, bundleUuid and the optional
// blockNumber/minTimestamp/maxTimestamp/revertingTxHashes fields); no
// kind-specific payload shape, such as MEV-Share's, is built.
func (m *RelayManager) SubmitBundle(ctx context.Context, rawTxsHex []string, opts BundleOptions) (string, []SubmitResult, error) {
	bundleID := uuid.New().String()

	relays := m.selectRelays(opts.SubmitOptions)
	results := make([]SubmitResult, 0, len(relays))
	for _, relay := range relays {
		if relay.Kind == RelayPublicRPC {
			continue // bundles are never meaningful against a public mempool
		}
		body, err := bundleBody(rawTxsHex, bundleID, relay, opts)
		if err != nil {
			return bundleID, results, fmt.Errorf("%w: marshal bundle body: %v", ErrSubmission, err)
		}
		res := m.attempt(ctx, relay, body, opts.Timeout)
		results = append(results, res)
		if res.Success {
			return bundleID, results, nil
		}
		if !opts.FastMode {
			return bundleID, results, fmt.Errorf("%w: relay %s refused bundle: %v", ErrSubmission, relay.Name, res.Err)
		}
	}
	return bundleID, results, fmt.Errorf("%w: all relays refused bundle", ErrSubmission)
}

func (m *RelayManager) attempt(ctx context.Context, relay RelayConfig, body []byte, timeout time.Duration) SubmitResult {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startedAt := time.Now()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, relay.Endpoint, bytes.NewReader(body))
	if err != nil {
		m.recordAttempt(relay.Name, false, 0, err)
		return SubmitResult{Relay: relay.Name, Success: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if relay.AuthKey != "" {
		req.Header.Set("Authorization", relay.AuthKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.WithField("relay", relay.Name).WithError(err).Warn("relay: submission request failed")
		m.recordAttempt(relay.Name, false, 0, err)
		return SubmitResult{Relay: relay.Name, Success: false, Err: err}
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	var attemptErr error
	if !success {
		attemptErr = fmt.Errorf("relay %s returned status %d", relay.Name, resp.StatusCode)
	}
	m.recordAttempt(relay.Name, success, time.Since(startedAt), attemptErr)
	return SubmitResult{Relay: relay.Name, Success: success, Err: attemptErr}
}

func (m *RelayManager) recordAttempt(name string, success bool, latency time.Duration, err error) {
	m.statsMu.Lock()
	s, ok := m.stats[name]
	m.statsMu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSubmissions++
	s.lastSubmission = time.Now()
	if success {
		s.successfulInclusions++
		s.totalInclusionMs += uint64(latency.Milliseconds())
	} else {
		s.failedSubmissions++
		s.lastError = err
	}
}

// RelayHealth is a point-in-time snapshot of one relay's submission
// record and availability, per spec §4.9.
type RelayHealth struct {
	Name                string
	TotalSubmissions    uint64
	SuccessfulInclusions uint64
	FailedSubmissions   uint64
	AvgInclusionTimeMs  float64
	LastSubmission      time.Time
	IsAvailable         bool
	LastError           string
}

// Health returns a snapshot of every relay's submission counters, in
// configured (preferred/priority) order.
func (m *RelayManager) Health() []RelayHealth {
	out := make([]RelayHealth, 0, len(m.relays))
	for _, relay := range m.relays {
		m.statsMu.Lock()
		s := m.stats[relay.Name]
		m.statsMu.Unlock()
		s.mu.Lock()
		h := RelayHealth{
			Name:                 relay.Name,
			TotalSubmissions:     s.totalSubmissions,
			SuccessfulInclusions: s.successfulInclusions,
			FailedSubmissions:    s.failedSubmissions,
			LastSubmission:       s.lastSubmission,
			IsAvailable:          s.isAvailable,
		}
		if s.successfulInclusions > 0 {
			h.AvgInclusionTimeMs = float64(s.totalInclusionMs) / float64(s.successfulInclusions)
		}
		if s.lastError != nil {
			h.LastError = s.lastError.Error()
		}
		s.mu.Unlock()
		out = append(out, h)
	}
	return out
}

// CheckHealth probes every relay with a cheap eth_blockNumber call and
// demotes (IsAvailable = false) any relay that fails to answer or
// returns a non-2xx status, then returns the refreshed snapshot.
func (m *RelayManager) CheckHealth(ctx context.Context) []RelayHealth {
	probeBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "eth_blockNumber",
		"params":  []any{},
		"id":      1,
	})
	for _, relay := range m.relays {
		healthy := m.probe(ctx, relay, probeBody)
		m.statsMu.Lock()
		s := m.stats[relay.Name]
		m.statsMu.Unlock()
		s.mu.Lock()
		s.isAvailable = healthy
		s.mu.Unlock()
	}
	return m.Health()
}

func (m *RelayManager) probe(ctx context.Context, relay RelayConfig, body []byte) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, relay.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if relay.AuthKey != "" {
		req.Header.Set("Authorization", relay.AuthKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.WithField("relay", relay.Name).WithError(err).Warn("relay: health probe failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
