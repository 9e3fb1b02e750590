package tierset

import (
	"github.com/loltools/riftcrawl/pkg/tier"
)

// DefaultSeedCap is TierSeed's default per-tier capacity.
const DefaultSeedCap = 1000

// TierSeed is a TierSet with an additional player->tier index, so a
// caller can answer "what tier is this player bucketed under" in O(1)
// without scanning every bucket. A player ID appears in at most one tier
// within a TierSeed.
type TierSeed struct {
	*TierSet
	location map[int64]tier.Tier
}

// NewSeed creates an empty TierSeed with the given per-tier cap. A cap of
// 0 falls back to DefaultSeedCap, unlike TierSet where 0 means unbounded.
func NewSeed(maxItemsPerSet int) *TierSeed {
	if maxItemsPerSet == 0 {
		maxItemsPerSet = DefaultSeedCap
	}
	return &TierSeed{
		TierSet:  New(maxItemsPerSet),
		location: make(map[int64]tier.Tier),
	}
}

// UpdateTier adds values to tier t like TierSet.UpdateTier, and also
// maintains the player->tier index, removing each ID from any other tier
// it was previously recorded under.
func (ts *TierSeed) UpdateTier(values []int64, t tier.Tier) int {
	added := ts.TierSet.UpdateTier(values, t)
	for _, v := range values {
		if !ts.TierSet.Has(t, v) {
			continue // was truncated by the cap, never actually inserted
		}
		if prev, ok := ts.location[v]; ok && prev != t {
			delete(ts.buckets[prev], v)
		}
		ts.location[v] = t
	}
	return added
}

// PlayerTier returns the tier a player is currently bucketed under, and
// whether the player is present at all.
func (ts *TierSeed) PlayerTier(id int64) (tier.Tier, bool) {
	t, ok := ts.location[id]
	return t, ok
}

// RemovePlayersBelowTier drops every player strictly weaker than t from
// both the tier buckets and the player->tier index.
func (ts *TierSeed) RemovePlayersBelowTier(t tier.Tier) {
	for _, weak := range tier.AllBelow(t) {
		for id := range ts.buckets[weak] {
			delete(ts.buckets[weak], id)
			delete(ts.location, id)
		}
	}
}

// Consume removes and returns up to the usual clamp(minN, pct*|set|, |set|)
// elements of tier t (TierSet.Consume), additionally clearing them from
// the player->tier index.
func (ts *TierSeed) Consume(t tier.Tier, minN int, pct float64) []int64 {
	out := ts.TierSet.Consume(t, minN, pct)
	for _, id := range out {
		delete(ts.location, id)
	}
	return out
}
