// Package symbolmemory implements C1: a persistent, TTL-expiring cache
// mapping free user text to canonical tickers, backed by a single
// on-disk JSON file written with atomic write-then-rename.
package symbolmemory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nse-agent/marketagent/internal/domain"
)

// record is the on-disk shape of one cache entry, keyed by lowercased
// user text in the surrounding map.
type record struct {
	CanonicalSymbol string    `json:"canonical_symbol"`
	ConfidenceLevel string    `json:"confidence_level"`
	Source          string    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
}

// Stats summarizes the cache for diagnostics and the get_stats
// operation.
type Stats struct {
	TotalEntries int
	BySource     map[domain.ResolutionSource]int
	ByConfidence map[domain.ConfidenceLevel]int
}

// Memory is the process-wide symbol cache. One Memory instance owns one
// JSON file; concurrent writers are not supported, matching the
// single-writer persistence model.
type Memory struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
	data map[string]record
}

// New loads (or initializes) the cache file at path.
func New(path string, logger zerolog.Logger) *Memory {
	m := &Memory{path: path, log: logger, data: map[string]record{}}
	m.load()
	return m
}

func normalize(userText string) string {
	return strings.ToLower(strings.TrimSpace(userText))
}

func (m *Memory) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Warn().Err(err).Str("path", m.path).Msg("symbol cache unreadable, starting empty")
		}
		m.data = map[string]record{}
		return
	}
	var raw map[string]record
	if err := json.Unmarshal(data, &raw); err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("symbol cache malformed, resetting to empty")
		m.data = map[string]record{}
		return
	}
	m.data = raw
}

// save persists the cache via atomic write-then-rename: write to a
// temp file in the same directory, then rename over the target so a
// crash mid-write never corrupts the live file.
func (m *Memory) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create symbol cache dir: %w", err)
	}
	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal symbol cache: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write symbol cache tmp: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("rename symbol cache: %w", err)
	}
	return nil
}

// Lookup returns the cached symbol for userText, or ok=false if absent
// or expired. An expired entry is deleted and persisted before
// returning.
func (m *Memory) Lookup(userText string) (domain.CachedSymbol, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(userText)
	r, found := m.data[key]
	if !found {
		return domain.CachedSymbol{}, false
	}
	cs := domain.CachedSymbol{
		UserText:        key,
		CanonicalSymbol: r.CanonicalSymbol,
		ConfidenceLevel: domain.ConfidenceLevel(r.ConfidenceLevel),
		Source:          domain.ResolutionSource(r.Source),
		Timestamp:       r.Timestamp,
	}
	if cs.IsExpired(time.Now()) {
		delete(m.data, key)
		if err := m.save(); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist cache after expiry eviction")
		}
		return domain.CachedSymbol{}, false
	}
	return cs, true
}

// Store upserts a cache entry and persists immediately.
func (m *Memory) Store(userText, canonicalSymbol string, confidence domain.ConfidenceLevel, source domain.ResolutionSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(userText)
	m.data[key] = record{
		CanonicalSymbol: canonicalSymbol,
		ConfidenceLevel: string(confidence),
		Source:          string(source),
		Timestamp:       time.Now(),
	}
	return m.save()
}

// Invalidate removes one entry, if present, and persists.
func (m *Memory) Invalidate(userText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, normalize(userText))
	return m.save()
}

// ClearExpired removes every entry older than the TTL and persists once.
func (m *Memory) ClearExpired() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, r := range m.data {
		if now.Sub(r.Timestamp) > domain.SymbolCacheTTL {
			delete(m.data, key)
			removed++
		}
	}
	if removed > 0 {
		if err := m.save(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// GetStats summarizes the cache contents.
func (m *Memory) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		BySource:     map[domain.ResolutionSource]int{},
		ByConfidence: map[domain.ConfidenceLevel]int{},
	}
	for _, r := range m.data {
		s.TotalEntries++
		s.BySource[domain.ResolutionSource(r.Source)]++
		s.ByConfidence[domain.ConfidenceLevel(r.ConfidenceLevel)]++
	}
	return s
}
