package tierset

import (
	"testing"

	"github.com/loltools/riftcrawl/pkg/tier"
	"github.com/stretchr/testify/assert"
)

func TestSeed_DefaultCap(t *testing.T) {
	s := NewSeed(0)
	assert.Equal(t, DefaultSeedCap, s.MaxItemsPerSet())
}

func TestSeed_PlayerAppearsInAtMostOneTier(t *testing.T) {
	s := NewSeed(0)
	s.UpdateTier([]int64{42}, tier.Gold)
	tr, ok := s.PlayerTier(42)
	assert.True(t, ok)
	assert.Equal(t, tier.Gold, tr)

	// Re-bucket the same player into a different tier.
	s.UpdateTier([]int64{42}, tier.Diamond)
	tr, ok = s.PlayerTier(42)
	assert.True(t, ok)
	assert.Equal(t, tier.Diamond, tr)
	assert.False(t, s.Has(tier.Gold, 42), "player must not remain in its old tier bucket")
	assert.True(t, s.Has(tier.Diamond, 42))
}

func TestSeed_PlayerTier_Missing(t *testing.T) {
	s := NewSeed(0)
	_, ok := s.PlayerTier(99)
	assert.False(t, ok)
}

func TestSeed_RemovePlayersBelowTier(t *testing.T) {
	s := NewSeed(0)
	s.UpdateTier([]int64{1}, tier.Challenger)
	s.UpdateTier([]int64{2}, tier.Gold)
	s.UpdateTier([]int64{3}, tier.Silver)
	s.UpdateTier([]int64{4}, tier.Bronze)

	s.RemovePlayersBelowTier(tier.Gold)

	_, ok1 := s.PlayerTier(1)
	_, ok2 := s.PlayerTier(2)
	_, ok3 := s.PlayerTier(3)
	_, ok4 := s.PlayerTier(4)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
	assert.False(t, ok4)
	assert.Equal(t, 2, s.Len())
}

func TestSeed_Consume_ClearsLocationIndex(t *testing.T) {
	s := NewSeed(0)
	s.UpdateTier([]int64{1, 2, 3}, tier.Gold)

	out := s.Consume(tier.Gold, 3, 1.0)
	assert.Len(t, out, 3)
	for _, id := range out {
		_, ok := s.PlayerTier(id)
		assert.False(t, ok)
	}
}

func TestSeed_UpdateTier_Idempotent(t *testing.T) {
	s := NewSeed(0)
	added1 := s.UpdateTier([]int64{5}, tier.Gold)
	added2 := s.UpdateTier([]int64{5}, tier.Gold)
	assert.Equal(t, 1, added1)
	assert.Equal(t, 0, added2)
	assert.Equal(t, 1, s.Len())
}
