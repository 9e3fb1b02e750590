package gateway

import (
	"context"
	"fmt"
	"testing"

	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a hand-written riotapi.Client double.
type mockClient struct {
	summoners     map[string]int64
	leagues       map[int64]riotapi.LeagueEntry
	challenger    []riotapi.LeagueEntry
	master        []riotapi.LeagueEntry
	matchlists    map[int64][]riotapi.MatchRef
	matches       map[int64]riotapi.Match
	summonerCalls int
	leagueCalls   int
}

func (m *mockClient) SummonerIDsByName(ctx context.Context, names []string) (map[string]int64, error) {
	m.summonerCalls++
	out := make(map[string]int64)
	for _, n := range names {
		if id, ok := m.summoners[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (m *mockClient) LeagueEntriesBySummonerIDs(ctx context.Context, queue riotapi.Queue, ids []int64) ([]riotapi.LeagueEntry, error) {
	m.leagueCalls++
	var out []riotapi.LeagueEntry
	for _, id := range ids {
		if e, ok := m.leagues[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockClient) ChallengerLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return m.challenger, nil
}

func (m *mockClient) MasterLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return m.master, nil
}

func (m *mockClient) Matchlist(ctx context.Context, summonerID int64, queue riotapi.Queue, window riotapi.TimeWindow) ([]riotapi.MatchRef, error) {
	return m.matchlists[summonerID], nil
}

func (m *mockClient) Match(ctx context.Context, matchID int64) (riotapi.Match, error) {
	return m.matches[matchID], nil
}

var _ riotapi.Client = (*mockClient)(nil)

func TestSummonerNamesToID_Batches(t *testing.T) {
	names := make([]string, 85)
	summoners := make(map[string]int64, 85)
	for i := range names {
		names[i] = fmt.Sprintf("player%d", i)
		summoners[names[i]] = int64(i)
	}
	mc := &mockClient{summoners: summoners}
	g := New(Config{Client: mc, Queue: riotapi.QueueRankedSolo5x5})

	out, err := g.SummonerNamesToID(context.Background(), names)
	require.NoError(t, err)
	assert.Len(t, out, 85)
	assert.Equal(t, 3, mc.summonerCalls, "85 names at batch size 40 is 3 calls")
}

func TestLeaguesBySummonerIDs_FiltersByQueue(t *testing.T) {
	mc := &mockClient{
		leagues: map[int64]riotapi.LeagueEntry{
			1: {PlayerOrTeamID: 1, Tier: "GOLD", Queue: riotapi.QueueRankedSolo5x5},
			2: {PlayerOrTeamID: 2, Tier: "SILVER", Queue: riotapi.QueueRankedTeam3x3},
		},
	}
	g := New(Config{Client: mc, Queue: riotapi.QueueRankedSolo5x5})

	out, err := g.LeaguesBySummonerIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1}, out[tier.Gold])
	assert.Empty(t, out[tier.Silver])
}

func TestGetTierFromParticipants_WorstTierAndFilter(t *testing.T) {
	mc := &mockClient{
		leagues: map[int64]riotapi.LeagueEntry{
			1: {PlayerOrTeamID: 1, Tier: "DIAMOND", Queue: riotapi.QueueRankedSolo5x5},
			2: {PlayerOrTeamID: 2, Tier: "DIAMOND", Queue: riotapi.QueueRankedSolo5x5},
			3: {PlayerOrTeamID: 3, Tier: "PLATINUM", Queue: riotapi.QueueRankedSolo5x5},
			4: {PlayerOrTeamID: 4, Tier: "PLATINUM", Queue: riotapi.QueueRankedSolo5x5},
			5: {PlayerOrTeamID: 5, Tier: "PLATINUM", Queue: riotapi.QueueRankedSolo5x5},
		},
	}
	g := New(Config{Client: mc, Queue: riotapi.QueueRankedSolo5x5})

	participants := []riotapi.Participant{{SummonerID: 1}, {SummonerID: 2}, {SummonerID: 3}, {SummonerID: 4}, {SummonerID: 5}}
	minTier, filtered, err := g.GetTierFromParticipants(context.Background(), participants, tier.Platinum)
	require.NoError(t, err)

	assert.Equal(t, tier.Platinum, minTier, "worst observed tier is platinum")
	assert.ElementsMatch(t, []int64{1, 2}, filtered[tier.Diamond])
	assert.ElementsMatch(t, []int64{3, 4, 5}, filtered[tier.Platinum])
}

func TestGetTierFromParticipants_FiltersBelowMinTier(t *testing.T) {
	mc := &mockClient{
		leagues: map[int64]riotapi.LeagueEntry{
			1: {PlayerOrTeamID: 1, Tier: "GOLD", Queue: riotapi.QueueRankedSolo5x5},
			2: {PlayerOrTeamID: 2, Tier: "SILVER", Queue: riotapi.QueueRankedSolo5x5},
		},
	}
	g := New(Config{Client: mc, Queue: riotapi.QueueRankedSolo5x5})

	_, filtered, err := g.GetTierFromParticipants(context.Background(),
		[]riotapi.Participant{{SummonerID: 1}, {SummonerID: 2}}, tier.Gold)
	require.NoError(t, err)
	assert.Contains(t, filtered, tier.Gold)
	assert.NotContains(t, filtered, tier.Silver)
}

func TestChallengerAndMasterIDs_Concatenates(t *testing.T) {
	mc := &mockClient{
		challenger: []riotapi.LeagueEntry{{PlayerOrTeamID: 1}, {PlayerOrTeamID: 2}},
		master:     []riotapi.LeagueEntry{{PlayerOrTeamID: 3}},
	}
	g := New(Config{Client: mc, Queue: riotapi.QueueRankedSolo5x5})

	ids, err := g.ChallengerAndMasterIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}
