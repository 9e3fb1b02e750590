// Package gateway implements the summoner/league gateway: batched
// lookups layered over pkg/riotapi.Client, plus the
// worst-tier-among-participants computation the crawler needs per match.
package gateway

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
)

const (
	summonerBatchSize = 40
	summonerIDBatch   = 10
)

// Gateway batches calls to a riotapi.Client to amortize request cost,
// and paces its own batched calls independently of whatever rate
// limiting the underlying client does.
type Gateway struct {
	client  riotapi.Client
	queue   riotapi.Queue
	limiter *rate.Limiter
}

// Config configures a Gateway.
type Config struct {
	Client riotapi.Client
	Queue  riotapi.Queue

	// RateLimit and RateBurst bound the gateway's own batched-call pacing.
	// 0 disables local pacing (the client's own limiter still applies).
	RateLimit float64
	RateBurst int
}

// New builds a Gateway.
func New(cfg Config) *Gateway {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Gateway{client: cfg.Client, queue: cfg.Queue, limiter: limiter}
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// SummonerNamesToID resolves names to numeric IDs in batches of 40.
func (g *Gateway) SummonerNamesToID(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, batch := range chunkStrings(names, summonerBatchSize) {
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
		res, err := g.client.SummonerIDsByName(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gateway: summoner_names_to_id: %w", err)
		}
		for name, id := range res {
			out[name] = id
		}
	}
	return out, nil
}

// LeaguesBySummonerIDs resolves summoner IDs to their tiers in batches
// of 10, keeping only entries whose queue matches.
func (g *Gateway) LeaguesBySummonerIDs(ctx context.Context, ids []int64) (map[tier.Tier][]int64, error) {
	out := make(map[tier.Tier][]int64)
	for _, batch := range chunkInts(ids, summonerIDBatch) {
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
		entries, err := g.client.LeagueEntriesBySummonerIDs(ctx, g.queue, batch)
		if err != nil {
			return nil, fmt.Errorf("gateway: leagues_by_summoner_ids: %w", err)
		}
		for _, e := range entries {
			if e.Queue != g.queue {
				continue
			}
			t, err := tier.Parse(e.Tier)
			if err != nil {
				continue // unrecognized tier name from upstream: skip rather than fail the batch
			}
			out[t] = append(out[t], e.PlayerOrTeamID)
		}
	}
	return out, nil
}

// GetTierFromParticipants computes the minimum tier and filtered
// tier->IDs map for a match's participants: the minimum is the worst
// (largest-ordinal) tier observed, and the returned map is filtered to
// tiers better-or-equal to minTier.
func (g *Gateway) GetTierFromParticipants(ctx context.Context, participants []riotapi.Participant, minTier tier.Tier) (tier.Tier, map[tier.Tier][]int64, error) {
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.SummonerID)
	}

	byTier, err := g.LeaguesBySummonerIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}

	var matchMinTier tier.Tier
	found := false
	for t := range byTier {
		if !found {
			matchMinTier = t
			found = true
			continue
		}
		matchMinTier = tier.Worst(matchMinTier, t)
	}
	if !found {
		return 0, nil, fmt.Errorf("gateway: get_tier_from_participants: no ranked participants found")
	}

	filtered := make(map[tier.Tier][]int64, len(byTier))
	for t, tIDs := range byTier {
		if tier.IsBetterOrEqual(t, minTier) {
			filtered[t] = tIDs
		}
	}

	return matchMinTier, filtered, nil
}

// Matchlist fetches a player's matchlist within window, restricted to
// the gateway's configured queue.
func (g *Gateway) Matchlist(ctx context.Context, summonerID int64, window riotapi.TimeWindow) ([]riotapi.MatchRef, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	refs, err := g.client.Matchlist(ctx, summonerID, g.queue, window)
	if err != nil {
		return nil, fmt.Errorf("gateway: matchlist: %w", err)
	}
	return refs, nil
}

// Match fetches a single match's full record.
func (g *Gateway) Match(ctx context.Context, matchID int64) (riotapi.Match, error) {
	if err := g.wait(ctx); err != nil {
		return riotapi.Match{}, err
	}
	m, err := g.client.Match(ctx, matchID)
	if err != nil {
		return riotapi.Match{}, fmt.Errorf("gateway: match: %w", err)
	}
	return m, nil
}

// ChallengerAndMasterIDs concatenates playerOrTeamId fields of the
// challenger and master leagues for the gateway's queue, the fallback
// seed source when no explicit seeds are configured.
func (g *Gateway) ChallengerAndMasterIDs(ctx context.Context) ([]int64, error) {
	chal, err := g.client.ChallengerLeague(ctx, g.queue)
	if err != nil {
		return nil, fmt.Errorf("gateway: challenger_league: %w", err)
	}
	master, err := g.client.MasterLeague(ctx, g.queue)
	if err != nil {
		return nil, fmt.Errorf("gateway: master_league: %w", err)
	}

	ids := make([]int64, 0, len(chal)+len(master))
	for _, e := range chal {
		ids = append(ids, e.PlayerOrTeamID)
	}
	for _, e := range master {
		ids = append(ids, e.PlayerOrTeamID)
	}
	return ids, nil
}

func chunkStrings(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func chunkInts(items []int64, size int) [][]int64 {
	var out [][]int64
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
