package core

// poolstore.go – the Pool Store (C3): a process-wide cache of discovered
// PoolEdges, partitioned by chain id, with a TTL freshness window and an
// atomically-written disk snapshot per chain.
//
// Concurrent scans for the same chain share one in-flight refresh via
// golang.org/x/sync/singleflight — a direct library match for spec §4.3's
// "single-flight" requirement, rather than hand-rolling the dedup logic
// the way a from-scratch implementation would.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// parseUint256Hex parses a "0x"-prefixed hex string (as produced by
// uint256.Int.Hex()) back into a *uint256.Int.
func parseUint256Hex(s string) (*uint256.Int, error) {
	v, err := uint256.FromHex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: parse cached reserve %q: %v", ErrProtocol, s, err)
	}
	return v, nil
}

// DefaultPoolCacheDuration is the default staleness window (spec §4.3).
const DefaultPoolCacheDuration = 60 * time.Minute

// chainEdges holds one chain's cached edges plus the wall-clock time they
// were last written, guarded by Store.mu (one lock shared by all chains).
type chainEdges struct {
	edges   []PoolEdge
	savedAt time.Time
}

// Store is the pool cache. It is safe for concurrent use: writes are
// last-writer-wins under a global mutex (callers never observe a torn
// entry because the whole chainEdges value is replaced atomically).
type Store struct {
	mu       sync.RWMutex
	byChain  map[uint64]chainEdges
	dir      string // on-disk snapshot directory; empty disables persistence
	ttl      time.Duration
	clock    clock.Clock
	logger   *log.Logger
	inflight singleflight.Group
}

// NewStore constructs a Store. dir == "" disables disk persistence
// (useful in tests and for the CLI's offline mode).
func NewStore(dir string, ttl time.Duration, clk clock.Clock, logger *log.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultPoolCacheDuration
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{byChain: make(map[uint64]chainEdges), dir: dir, ttl: ttl, clock: clk, logger: logger}
}

// IsFresh reports whether the in-memory entry for chainID is within the
// TTL window.
func (s *Store) IsFresh(chainID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ce, ok := s.byChain[chainID]
	if !ok {
		return false
	}
	return s.clock.Now().Sub(ce.savedAt) < s.ttl
}

// GetEdges returns the cached edges for chainID, or nil if none are
// cached (regardless of freshness — callers check IsFresh separately).
func (s *Store) GetEdges(chainID uint64) []PoolEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ce, ok := s.byChain[chainID]
	if !ok {
		return nil
	}
	out := make([]PoolEdge, len(ce.edges))
	copy(out, ce.edges)
	return out
}

// PutEdges replaces the in-memory cache for chainID and, if persistence
// is enabled, writes an atomic disk snapshot.
func (s *Store) PutEdges(chainID uint64, edges []PoolEdge) error {
	now := s.clock.Now()
	s.mu.Lock()
	s.byChain[chainID] = chainEdges{edges: edges, savedAt: now}
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	return s.saveToDisk(chainID, edges, now)
}

// Clear resets the entire in-memory cache, e.g. on reconfiguration. Disk
// snapshots are left untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChain = make(map[uint64]chainEdges)
}

// FilterToTokens returns the subset of edges whose TokenIn and TokenOut
// are both in the requested token set, matching spec §4.3's "filters to the
// requested token set" behavior when serving from cache.
func FilterToTokens(edges []PoolEdge, tokens []Address) []PoolEdge {
	want := make(map[Address]struct{}, len(tokens))
	for _, t := range tokens {
		want[t] = struct{}{}
	}
	out := make([]PoolEdge, 0, len(edges))
	for _, e := range edges {
		_, inWant := want[e.TokenIn.Address]
		_, outWant := want[e.TokenOut.Address]
		if inWant && outWant {
			out = append(out, e)
		}
	}
	return out
}

//---------------------------------------------------------------------
// Disk persistence
//---------------------------------------------------------------------

type diskSnapshot struct {
	SavedAtMs int64           `json:"saved_at_ms"`
	Edges     []diskPoolEdge  `json:"edges"`
}

type diskPoolEdge struct {
	PoolAddress string `json:"pool_address"`
	DEXName     string `json:"dex_name"`
	TokenIn     string `json:"token_in"`
	TokenInDec  uint8  `json:"token_in_decimals"`
	TokenInSym  string `json:"token_in_symbol"`
	TokenOut    string `json:"token_out"`
	TokenOutDec uint8  `json:"token_out_decimals"`
	TokenOutSym string `json:"token_out_symbol"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
	Fee         float64 `json:"fee"`
	GasEstimate uint64  `json:"gas_estimate"`
}

func (s *Store) snapshotPath(chainID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.json", chainID))
}

// saveToDisk writes a temp file then renames it over the final path, so a
// reader never observes a partially-written snapshot (spec §5).
func (s *Store) saveToDisk(chainID uint64, edges []PoolEdge, savedAt time.Time) error {
	snap := diskSnapshot{SavedAtMs: savedAt.UnixMilli(), Edges: make([]diskPoolEdge, len(edges))}
	for i, e := range edges {
		snap.Edges[i] = diskPoolEdge{
			PoolAddress: e.PoolAddress.String(),
			DEXName:     e.DEXName,
			TokenIn:     e.TokenIn.Address.String(),
			TokenInDec:  e.TokenIn.Decimals,
			TokenInSym:  e.TokenIn.Symbol,
			TokenOut:    e.TokenOut.Address.String(),
			TokenOutDec: e.TokenOut.Decimals,
			TokenOutSym: e.TokenOut.Symbol,
			Reserve0:    e.Reserve0.Hex(),
			Reserve1:    e.Reserve1.Hex(),
			Fee:         e.Fee,
			GasEstimate: e.GasEstimate,
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir snapshot dir: %w", err)
	}
	final := s.snapshotPath(chainID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadFromDisk reads the chain's snapshot file into the in-memory cache,
// if present. It is a no-op (not an error) when no snapshot exists yet.
func (s *Store) LoadFromDisk(chainID uint64) error {
	if s.dir == "" {
		return nil
	}
	data, err := os.ReadFile(s.snapshotPath(chainID))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap diskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: unmarshal snapshot: %v", ErrProtocol, err)
	}
	edges := make([]PoolEdge, 0, len(snap.Edges))
	for _, de := range snap.Edges {
		e, err := decodeDiskEdge(de)
		if err != nil {
			s.logger.WithError(err).Warn("poolstore: dropping malformed cached edge")
			continue
		}
		edges = append(edges, e)
	}
	s.mu.Lock()
	s.byChain[chainID] = chainEdges{edges: edges, savedAt: time.UnixMilli(snap.SavedAtMs)}
	s.mu.Unlock()
	return nil
}

func decodeDiskEdge(de diskPoolEdge) (PoolEdge, error) {
	pool, err := ParseAddress(de.PoolAddress)
	if err != nil {
		return PoolEdge{}, err
	}
	tin, err := ParseAddress(de.TokenIn)
	if err != nil {
		return PoolEdge{}, err
	}
	tout, err := ParseAddress(de.TokenOut)
	if err != nil {
		return PoolEdge{}, err
	}
	r0, err := parseUint256Hex(de.Reserve0)
	if err != nil {
		return PoolEdge{}, err
	}
	r1, err := parseUint256Hex(de.Reserve1)
	if err != nil {
		return PoolEdge{}, err
	}
	return PoolEdge{
		PoolAddress: pool,
		DEXName:     de.DEXName,
		TokenIn:     TokenRef{Address: tin, Decimals: de.TokenInDec, Symbol: de.TokenInSym},
		TokenOut:    TokenRef{Address: tout, Decimals: de.TokenOutDec, Symbol: de.TokenOutSym},
		Reserve0:    r0,
		Reserve1:    r1,
		Fee:         de.Fee,
		GasEstimate: de.GasEstimate,
	}, nil
}

//---------------------------------------------------------------------
// Single-flight refresh
//---------------------------------------------------------------------

// RefreshFunc performs the actual network scan for a chain; it is only
// ever invoked once per chain even if multiple callers request a refresh
// concurrently.
type RefreshFunc func() ([]PoolEdge, error)

// GetOrRefresh returns the fresh cached edges for chainID if present,
// otherwise invokes refresh (sharing one in-flight call across concurrent
// callers for the same chain) and stores the result.
func (s *Store) GetOrRefresh(chainID uint64, tokens []Address, refresh RefreshFunc) ([]PoolEdge, error) {
	if s.IsFresh(chainID) {
		return FilterToTokens(s.GetEdges(chainID), tokens), nil
	}
	key := fmt.Sprintf("%d", chainID)
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		edges, err := refresh()
		if err != nil {
			return nil, err
		}
		if err := s.PutEdges(chainID, edges); err != nil {
			s.logger.WithError(err).Warn("poolstore: failed to persist snapshot")
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	return FilterToTokens(v.([]PoolEdge), tokens), nil
}
