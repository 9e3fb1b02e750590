package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/checkpoint"
	"github.com/loltools/riftcrawl/pkg/gateway"
	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
)

// fakeClient is a minimal hand-written riotapi.Client double, in the
// same style as pkg/gateway's mockClient.
type fakeClient struct {
	leagues    map[int64]riotapi.LeagueEntry
	matchlists map[int64][]riotapi.MatchRef
	matches    map[int64]riotapi.Match
}

func (f *fakeClient) SummonerIDsByName(ctx context.Context, names []string) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeClient) LeagueEntriesBySummonerIDs(ctx context.Context, queue riotapi.Queue, ids []int64) ([]riotapi.LeagueEntry, error) {
	var out []riotapi.LeagueEntry
	for _, id := range ids {
		if e, ok := f.leagues[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeClient) ChallengerLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return nil, nil
}

func (f *fakeClient) MasterLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return nil, nil
}

func (f *fakeClient) Matchlist(ctx context.Context, summonerID int64, queue riotapi.Queue, window riotapi.TimeWindow) ([]riotapi.MatchRef, error) {
	return f.matchlists[summonerID], nil
}

func (f *fakeClient) Match(ctx context.Context, matchID int64) (riotapi.Match, error) {
	m, ok := f.matches[matchID]
	if !ok {
		return riotapi.Match{}, &riotapi.APIError{Op: "match", StatusCode: 404, Err: errors.New("not found")}
	}
	return m, nil
}

var _ riotapi.Client = (*fakeClient)(nil)

func newTestEngine(t *testing.T, fc *fakeClient, cfg Config, recordSink RecordSink) *Engine {
	t.Helper()
	gw := gateway.New(gateway.Config{Client: fc, Queue: riotapi.QueueRankedSolo5x5})
	if cfg.MapID == 0 {
		cfg.MapID = riotapi.SummonersRiftMapID
	}
	return New(cfg, gw, recordSink, nil, zap.NewNop())
}

// Scenario: a single seeded player with one eligible match is accepted.
func TestEngine_SingleSeedOneMatchAccepted(t *testing.T) {
	fc := &fakeClient{
		leagues: map[int64]riotapi.LeagueEntry{
			2: {PlayerOrTeamID: 2, Tier: "GOLD", Queue: riotapi.QueueRankedSolo5x5},
		},
		matchlists: map[int64][]riotapi.MatchRef{1: {{MatchID: 100}}},
		matches: map[int64]riotapi.Match{
			100: {ID: 100, MapID: riotapi.SummonersRiftMapID, GameVersion: "12.1.1", Participants: []riotapi.Participant{{SummonerID: 2}}},
		},
	}

	var delivered []string
	sink := func(rec Record, tierName string) error {
		delivered = append(delivered, tierName)
		return nil
	}

	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze}, sink)
	e.frontier.AddPlayersToAnalyze([]int64{1})

	e.expandPlayer(context.Background(), 1)
	assert.Equal(t, 1, e.frontier.MatchesToDownloadLen())

	id, ok := e.frontier.PopMatchToDownload()
	require.True(t, ok)
	e.fetchMatch(context.Background(), id)

	assert.Equal(t, []string{"gold"}, delivered)
	assert.Equal(t, int64(1), e.summary.MatchesAccepted.Load())
}

// Scenario: a match on the wrong map is rejected before delivery.
func TestEngine_WrongMapRejected(t *testing.T) {
	fc := &fakeClient{
		matches: map[int64]riotapi.Match{
			200: {ID: 200, MapID: 10, GameVersion: "12.1.1"},
		},
	}
	var delivered int
	sink := func(rec Record, tierName string) error { delivered++; return nil }

	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze}, sink)
	e.frontier.AddMatchesToDownload([]int64{200})

	id, ok := e.frontier.PopMatchToDownload()
	require.True(t, ok)
	e.fetchMatch(context.Background(), id)

	assert.Equal(t, 0, delivered)
	assert.True(t, e.frontier.IsDownloaded(200))
}

// Scenario: a match whose worst participant tier is below the configured
// floor is rejected.
func TestEngine_BelowMinimumTierRejected(t *testing.T) {
	fc := &fakeClient{
		leagues: map[int64]riotapi.LeagueEntry{
			5: {PlayerOrTeamID: 5, Tier: "BRONZE", Queue: riotapi.QueueRankedSolo5x5},
		},
		matches: map[int64]riotapi.Match{
			300: {ID: 300, MapID: riotapi.SummonersRiftMapID, GameVersion: "12.1.1", Participants: []riotapi.Participant{{SummonerID: 5}}},
		},
	}
	var delivered int
	sink := func(rec Record, tierName string) error { delivered++; return nil }

	e := newTestEngine(t, fc, Config{MinimumTier: tier.Gold}, sink)
	e.frontier.AddMatchesToDownload([]int64{300})

	id, ok := e.frontier.PopMatchToDownload()
	require.True(t, ok)
	e.fetchMatch(context.Background(), id)

	assert.Equal(t, 0, delivered, "bronze participant is weaker than the configured gold floor")
}

// Scenario: a fetched match's eligible participants are pushed back onto
// players_to_analyze for further expansion.
func TestEngine_ParticipantFanOut(t *testing.T) {
	fc := &fakeClient{
		leagues: map[int64]riotapi.LeagueEntry{
			7: {PlayerOrTeamID: 7, Tier: "PLATINUM", Queue: riotapi.QueueRankedSolo5x5},
			8: {PlayerOrTeamID: 8, Tier: "SILVER", Queue: riotapi.QueueRankedSolo5x5},
		},
		matches: map[int64]riotapi.Match{
			400: {
				ID: 400, MapID: riotapi.SummonersRiftMapID, GameVersion: "12.1.1",
				Participants: []riotapi.Participant{{SummonerID: 7}, {SummonerID: 8}},
			},
		},
	}
	sink := func(rec Record, tierName string) error { return nil }

	e := newTestEngine(t, fc, Config{MinimumTier: tier.Platinum}, sink)
	e.frontier.AddMatchesToDownload([]int64{400})

	id, ok := e.frontier.PopMatchToDownload()
	require.True(t, ok)
	e.fetchMatch(context.Background(), id)

	// GetTierFromParticipants filters its returned map to tiers >= minTier,
	// so only the platinum participant is pushed back when the floor is
	// platinum, even though both participants resolved a league entry.
	assert.Equal(t, 1, e.frontier.PlayersToAnalyzeLen())
}

// Scenario: a checkpoint snapshot restores the frontier so a resumed run
// picks up where a prior run left off.
func TestEngine_CheckpointResume(t *testing.T) {
	fc := &fakeClient{}
	sink := func(rec Record, tierName string) error { return nil }
	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze}, sink)

	e.frontier.Restore(checkpoint.Snapshot{
		PlayersToAnalyze:  []int64{1, 2},
		AnalyzedPlayers:   []int64{3},
		MatchesToDownload: []int64{10},
		DownloadedMatches: []int64{11},
	})

	assert.Equal(t, 2, e.frontier.PlayersToAnalyzeLen())
	assert.True(t, e.frontier.IsAnalyzed(3))
	assert.Equal(t, 1, e.frontier.MatchesToDownloadLen())
	assert.True(t, e.frontier.IsDownloaded(11))
}

// Scenario: when minimum_patch is "latest", a detected patch change clears
// downloaded_matches so matches are re-fetched under the new patch.
func TestEngine_PatchChangeClearsDownloadedMatches(t *testing.T) {
	fc := &fakeClient{}
	sink := func(rec Record, tierName string) error { return nil }

	versions := []string{"12.1.1", "12.2.1"}
	call := 0
	fetchPatch := func(ctx context.Context) (string, error) {
		v := versions[call]
		if call < len(versions)-1 {
			call++
		}
		return v, nil
	}

	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze, MinimumPatch: "latest", FetchPatchVersion: fetchPatch}, sink)
	e.frontier.MarkDownloaded(1)
	require.Equal(t, 1, e.frontier.DownloadedMatchesLen())

	e.maybeInvalidateOnPatchChange() // first call: populates the patch cache, no change observed yet
	assert.Equal(t, 1, e.frontier.DownloadedMatchesLen())

	e.patchCache.Delete("patch_version") // force a re-fetch on the next call
	e.maybeInvalidateOnPatchChange()
	assert.Equal(t, 0, e.frontier.DownloadedMatchesLen())
}

// Scenario: under minimum_patch "latest", a match played on an older
// patch is rejected by the delivery gate, while a current-patch match
// from the same participants is delivered.
func TestEngine_LatestPatchFloorRejectsOldVersions(t *testing.T) {
	fc := &fakeClient{
		leagues: map[int64]riotapi.LeagueEntry{
			2: {PlayerOrTeamID: 2, Tier: "GOLD", Queue: riotapi.QueueRankedSolo5x5},
		},
		matches: map[int64]riotapi.Match{
			100: {ID: 100, MapID: riotapi.SummonersRiftMapID, GameVersion: "5.19.1", Participants: []riotapi.Participant{{SummonerID: 2}}},
			101: {ID: 101, MapID: riotapi.SummonersRiftMapID, GameVersion: "5.20.1", Participants: []riotapi.Participant{{SummonerID: 2}}},
		},
	}

	var delivered []string
	sink := func(rec Record, tierName string) error {
		delivered = append(delivered, tierName)
		return nil
	}

	fetchPatch := func(ctx context.Context) (string, error) { return "5.20.1", nil }
	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze, MinimumPatch: "latest", FetchPatchVersion: fetchPatch}, sink)

	e.fetchMatch(context.Background(), 100)
	assert.Empty(t, delivered, "a 5.19 match is older than the current 5.20 patch")
	assert.True(t, e.frontier.IsDownloaded(100), "a rejected match still counts as downloaded")

	e.fetchMatch(context.Background(), 101)
	assert.Equal(t, []string{"gold"}, delivered)
}

// An unusable patch lookup must fail closed: with minimum_patch
// "latest" and no way to learn the current version, nothing passes the
// patch floor.
func TestEngine_LatestPatchFloorRejectsOnLookupFailure(t *testing.T) {
	fc := &fakeClient{
		leagues: map[int64]riotapi.LeagueEntry{
			2: {PlayerOrTeamID: 2, Tier: "GOLD", Queue: riotapi.QueueRankedSolo5x5},
		},
		matches: map[int64]riotapi.Match{
			100: {ID: 100, MapID: riotapi.SummonersRiftMapID, GameVersion: "5.20.1", Participants: []riotapi.Participant{{SummonerID: 2}}},
		},
	}
	var delivered int
	sink := func(rec Record, tierName string) error { delivered++; return nil }

	fetchPatch := func(ctx context.Context) (string, error) { return "", errors.New("versions endpoint down") }
	e := newTestEngine(t, fc, Config{MinimumTier: tier.Bronze, MinimumPatch: "latest", FetchPatchVersion: fetchPatch}, sink)

	e.fetchMatch(context.Background(), 100)
	assert.Equal(t, 0, delivered)
}

func TestEngine_RunEmitsCheckpointOnShutdown(t *testing.T) {
	fc := &fakeClient{}
	sink := func(rec Record, tierName string) error { return nil }

	checkpointed := make(chan checkpoint.Snapshot, 1)
	checkSink := func(snap checkpoint.Snapshot) error {
		checkpointed <- snap
		return nil
	}

	e := New(Config{MinimumTier: tier.Bronze, MWorkers: 1, PWorkers: 1, LoggingInterval: time.Hour},
		gateway.New(gateway.Config{Client: fc, Queue: riotapi.QueueRankedSolo5x5}), sink, checkSink, zap.NewNop())
	e.frontier.AddPlayersToAnalyze([]int64{1})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = e.Run(ctx)

	select {
	case <-checkpointed:
	case <-time.After(time.Second):
		t.Fatal("Run did not invoke the checkpoint sink before returning")
	}
}
