package tierset

import (
	"encoding/json"
	"testing"

	"github.com/loltools/riftcrawl/pkg/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTier_BoundedTruncation(t *testing.T) {
	ts := New(3)
	added := ts.UpdateTier([]int64{1, 2, 3, 4, 5}, tier.Gold)
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, ts.TierLen(tier.Gold))
	assert.LessOrEqual(t, ts.TierLen(tier.Gold), ts.MaxItemsPerSet())
}

func TestUpdateTier_Unbounded(t *testing.T) {
	ts := New(0)
	added := ts.UpdateTier([]int64{1, 2, 3, 4, 5}, tier.Gold)
	assert.Equal(t, 5, added)
	assert.Equal(t, 5, ts.TierLen(tier.Gold))
}

func TestUpdateTier_NoDuplicateCount(t *testing.T) {
	ts := New(0)
	ts.UpdateTier([]int64{1, 2}, tier.Gold)
	added := ts.UpdateTier([]int64{2, 3}, tier.Gold)
	assert.Equal(t, 1, added) // only 3 is new
	assert.Equal(t, 3, ts.TierLen(tier.Gold))
}

func TestMergeAndSubtract_MultisetIdentity(t *testing.T) {
	a := New(0)
	a.UpdateTier([]int64{1, 2, 3}, tier.Gold)

	b := New(0)
	b.UpdateTier([]int64{3, 4}, tier.Gold)

	snapshot := a.IDs(tier.Gold)

	a.MergeFrom(b)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, a.IDs(tier.Gold))

	a.SubtractFrom(b)
	// a -= b removes every ID that b carries (3 and 4), regardless of
	// whether it was originally in a.
	want := make([]int64, 0, len(snapshot))
	for _, id := range snapshot {
		if id != 3 && id != 4 {
			want = append(want, id)
		}
	}
	assert.ElementsMatch(t, want, a.IDs(tier.Gold))
}

func TestConsume_NeverRemovesMoreThanPresent(t *testing.T) {
	ts := New(0)
	ts.UpdateTier([]int64{1, 2, 3}, tier.Silver)

	out := ts.Consume(tier.Silver, 10, 0.5) // minN exceeds set size
	assert.Len(t, out, 3)
	assert.Equal(t, 0, ts.TierLen(tier.Silver))
}

func TestConsume_PercentageAndClamp(t *testing.T) {
	ts := New(0)
	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ts.UpdateTier(ids, tier.Bronze)

	out := ts.Consume(tier.Bronze, 2, 0.3) // floor(0.3*10)=3, clamp(2,3,10)=3
	assert.Len(t, out, 3)
	assert.Equal(t, 7, ts.TierLen(tier.Bronze))

	seen := make(map[int64]bool)
	for _, id := range out {
		seen[id] = true
	}
	assert.Len(t, seen, 3, "consume must not yield duplicates")
}

func TestConsume_EmptyBucket(t *testing.T) {
	ts := New(0)
	out := ts.Consume(tier.Gold, 5, 0.5)
	assert.Nil(t, out)
}

func TestLenAndIsEmpty(t *testing.T) {
	ts := New(0)
	assert.True(t, ts.IsEmpty())
	assert.Equal(t, 0, ts.Len())

	ts.UpdateTier([]int64{1}, tier.Gold)
	ts.UpdateTier([]int64{2, 3}, tier.Silver)
	assert.False(t, ts.IsEmpty())
	assert.Equal(t, 3, ts.Len())
}

func TestHas(t *testing.T) {
	ts := New(0)
	ts.UpdateTier([]int64{42}, tier.Diamond)
	assert.True(t, ts.Has(tier.Diamond, 42))
	assert.False(t, ts.Has(tier.Diamond, 43))
	assert.False(t, ts.Has(tier.Gold, 42))
}

func TestJSONRoundTrip(t *testing.T) {
	ts := New(100)
	ts.UpdateTier([]int64{1, 2, 3}, tier.Gold)
	ts.UpdateTier([]int64{4}, tier.Bronze)

	data, err := json.Marshal(ts)
	require.NoError(t, err)

	got := New(0)
	require.NoError(t, json.Unmarshal(data, got))

	assert.Equal(t, ts.MaxItemsPerSet(), got.MaxItemsPerSet())
	assert.ElementsMatch(t, ts.IDs(tier.Gold), got.IDs(tier.Gold))
	assert.ElementsMatch(t, ts.IDs(tier.Bronze), got.IDs(tier.Bronze))
	assert.Equal(t, ts.Len(), got.Len())
}

func TestJSONRoundTrip_EmptySetOmitsTiers(t *testing.T) {
	ts := New(0)
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tiers":{}}`, string(data))

	got := New(0)
	require.NoError(t, json.Unmarshal(data, got))
	assert.True(t, got.IsEmpty())
}
