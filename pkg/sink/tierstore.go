package sink

import (
	"fmt"
	"sync"

	"github.com/loltools/riftcrawl/pkg/tier"
)

// TierStore lazily owns one Store per tier, so every tier's output lands
// in its own file family.
//
// TierStore is safe for concurrent use: Write, Close and Counts all hold
// its mutex while touching the underlying Stores, which are not
// concurrency-safe themselves.
type TierStore struct {
	mu       sync.Mutex
	dir      string
	prefix   string
	perFile  int
	archiver Archiver
	stores   map[tier.Tier]*Store
}

// TierStoreConfig configures a TierStore.
type TierStoreConfig struct {
	Dir            string
	Prefix         string
	MatchesPerFile int
	Archiver       Archiver
}

// NewTierStore creates an empty TierStore. Per-tier Store instances are
// created on first Write for that tier.
func NewTierStore(cfg TierStoreConfig) *TierStore {
	return &TierStore{
		dir:      cfg.Dir,
		prefix:   cfg.Prefix,
		perFile:  cfg.MatchesPerFile,
		archiver: cfg.Archiver,
		stores:   make(map[tier.Tier]*Store),
	}
}

// Write appends text to the Store for tier t, creating it if needed.
func (ts *TierStore) Write(t tier.Tier, text string) error {
	s := ts.storeFor(t)
	ts.mu.Lock()
	err := s.Write(text)
	ts.mu.Unlock()
	if err != nil {
		return fmt.Errorf("tierstore: %s: %w", t, err)
	}
	return nil
}

func (ts *TierStore) storeFor(t tier.Tier) *Store {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	s, ok := ts.stores[t]
	if !ok {
		s = NewStore(Config{
			Dir:            ts.dir,
			Prefix:         ts.prefix,
			TierName:       t.String(),
			MatchesPerFile: ts.perFile,
			Archiver:       ts.archiver,
		})
		ts.stores[t] = s
	}
	return s
}

// Close closes every tier's Store, collecting the first error encountered
// while still attempting to close the rest.
func (ts *TierStore) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var firstErr error
	for t, s := range ts.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tierstore: close %s: %w", t, err)
		}
	}
	return firstErr
}

// Counts returns the in-flight record count of each tier's currently open
// file, for the /status endpoint.
func (ts *TierStore) Counts() map[tier.Tier]int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	out := make(map[tier.Tier]int, len(ts.stores))
	for t, s := range ts.stores {
		out[t] = s.Count()
	}
	return out
}
