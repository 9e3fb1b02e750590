package riotapi

import "context"

// Client is the narrow contract pkg/gateway and internal/config depend
// on. Every method takes a single already-batched request; batching
// policy belongs to pkg/gateway, not to the client.
type Client interface {
	// SummonerIDsByName resolves display names to numeric summoner IDs.
	// Names the service does not recognize are simply absent from the
	// result map.
	SummonerIDsByName(ctx context.Context, names []string) (map[string]int64, error)

	// LeagueEntriesBySummonerIDs returns the ranked standing of each
	// summoner ID in the given queue. Summoners unranked in that queue
	// are absent from the result.
	LeagueEntriesBySummonerIDs(ctx context.Context, queue Queue, summonerIDs []int64) ([]LeagueEntry, error)

	// ChallengerLeague returns every entry of the challenger tier.
	ChallengerLeague(ctx context.Context, queue Queue) ([]LeagueEntry, error)

	// MasterLeague returns every entry of the master tier.
	MasterLeague(ctx context.Context, queue Queue) ([]LeagueEntry, error)

	// Matchlist returns match IDs played by summonerID within window,
	// restricted to queue.
	Matchlist(ctx context.Context, summonerID int64, queue Queue, window TimeWindow) ([]MatchRef, error)

	// Match fetches a single match's full record.
	Match(ctx context.Context, matchID int64) (Match, error)
}
