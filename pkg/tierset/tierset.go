// Package tierset implements TierSet, a map from tier.Tier to a bounded set
// of int64 IDs, and TierSeed, which layers a player->tier index on top for
// O(1) membership queries.
package tierset

import (
	"encoding/json"
	"math"

	"github.com/loltools/riftcrawl/pkg/tier"
)

// Set is a plain set of int64 IDs. Kept as a named type so call sites read
// clearly; it is just map[int64]struct{} underneath.
type Set map[int64]struct{}

// TierSet maps Tier -> set of IDs, bounded by MaxItemsPerSet (0 = unbounded).
//
// TierSet is not safe for concurrent use; callers guard it with their
// own locks.
type TierSet struct {
	maxItemsPerSet int
	buckets        map[tier.Tier]Set
}

// New creates an empty TierSet. maxItemsPerSet <= 0 means unbounded.
func New(maxItemsPerSet int) *TierSet {
	return &TierSet{
		maxItemsPerSet: maxItemsPerSet,
		buckets:        make(map[tier.Tier]Set),
	}
}

// MaxItemsPerSet returns the configured per-tier cap (0 = unbounded).
func (ts *TierSet) MaxItemsPerSet() int {
	return ts.maxItemsPerSet
}

func (ts *TierSet) bucket(t tier.Tier) Set {
	b, ok := ts.buckets[t]
	if !ok {
		b = make(Set)
		ts.buckets[t] = b
	}
	return b
}

// UpdateTier adds values to tier t, truncating silently once the bucket
// reaches MaxItemsPerSet. Returns the number of values actually added.
func (ts *TierSet) UpdateTier(values []int64, t tier.Tier) int {
	b := ts.bucket(t)
	added := 0
	for _, v := range values {
		if ts.maxItemsPerSet > 0 && len(b) >= ts.maxItemsPerSet {
			break
		}
		if _, exists := b[v]; !exists {
			b[v] = struct{}{}
			added++
		}
	}
	return added
}

// MergeFrom implements "+=": every ID in other is added to the matching
// tier bucket in ts, subject to the same per-tier cap as UpdateTier.
func (ts *TierSet) MergeFrom(other *TierSet) {
	if other == nil {
		return
	}
	for t, b := range other.buckets {
		ids := make([]int64, 0, len(b))
		for id := range b {
			ids = append(ids, id)
		}
		ts.UpdateTier(ids, t)
	}
}

// SubtractFrom implements "-=": every ID present in other's bucket for a
// tier is removed from ts's bucket for that same tier.
func (ts *TierSet) SubtractFrom(other *TierSet) {
	if other == nil {
		return
	}
	for t, b := range other.buckets {
		mine, ok := ts.buckets[t]
		if !ok {
			continue
		}
		for id := range b {
			delete(mine, id)
		}
	}
}

// Consume removes and returns up to clamp(minN, floor(pct*|set|), |set|)
// elements from tier t, in arbitrary order. Callers must not depend on
// which elements come out. It never removes more than the bucket holds.
func (ts *TierSet) Consume(t tier.Tier, minN int, pct float64) []int64 {
	b, ok := ts.buckets[t]
	if !ok || len(b) == 0 {
		return nil
	}

	n := int(math.Floor(pct * float64(len(b))))
	n = clamp(minN, n, len(b))

	out := make([]int64, 0, n)
	for id := range b {
		if len(out) >= n {
			break
		}
		out = append(out, id)
		delete(b, id)
	}
	return out
}

func clamp(lo, v, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Len returns the total number of IDs across every tier bucket.
func (ts *TierSet) Len() int {
	n := 0
	for _, b := range ts.buckets {
		n += len(b)
	}
	return n
}

// IsEmpty reports whether the set holds no IDs in any tier.
func (ts *TierSet) IsEmpty() bool {
	return ts.Len() == 0
}

// TierLen returns the number of IDs in a single tier's bucket.
func (ts *TierSet) TierLen(t tier.Tier) int {
	return len(ts.buckets[t])
}

// Has reports whether id is present in tier t's bucket.
func (ts *TierSet) Has(t tier.Tier, id int64) bool {
	_, ok := ts.buckets[t][id]
	return ok
}

// Tiers returns the tiers that currently hold at least one ID.
func (ts *TierSet) Tiers() []tier.Tier {
	out := make([]tier.Tier, 0, len(ts.buckets))
	for t, b := range ts.buckets {
		if len(b) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// IDs returns a snapshot copy of tier t's IDs.
func (ts *TierSet) IDs(t tier.Tier) []int64 {
	b := ts.buckets[t]
	out := make([]int64, 0, len(b))
	for id := range b {
		out = append(out, id)
	}
	return out
}

// jsonForm is the on-the-wire shape: tier name -> list of IDs. Empty
// buckets are omitted so JSON round-trips compare equal by content.
type jsonForm struct {
	MaxItemsPerSet int                `json:"max_items_per_set,omitempty"`
	Tiers          map[string][]int64 `json:"tiers"`
}

// MarshalJSON renders the set keyed by tier name.
func (ts *TierSet) MarshalJSON() ([]byte, error) {
	jf := jsonForm{
		MaxItemsPerSet: ts.maxItemsPerSet,
		Tiers:          make(map[string][]int64, len(ts.buckets)),
	}
	for t, b := range ts.buckets {
		if len(b) == 0 {
			continue
		}
		ids := make([]int64, 0, len(b))
		for id := range b {
			ids = append(ids, id)
		}
		jf.Tiers[t.String()] = ids
	}
	return json.Marshal(jf)
}

// UnmarshalJSON restores a set from its JSON form.
func (ts *TierSet) UnmarshalJSON(data []byte) error {
	var jf jsonForm
	if err := json.Unmarshal(data, &jf); err != nil {
		return err
	}
	ts.maxItemsPerSet = jf.MaxItemsPerSet
	ts.buckets = make(map[tier.Tier]Set, len(jf.Tiers))
	for name, ids := range jf.Tiers {
		t, err := tier.Parse(name)
		if err != nil {
			return err
		}
		ts.UpdateTier(ids, t)
	}
	return nil
}
