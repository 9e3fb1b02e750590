// Package httpclient is a minimal, default riotapi.Client implementation
// over net/http. It is intentionally simple and swappable; a production
// deployment brings its own client with per-method rate limiting and
// retry handling. This default exists so riftcrawl builds and runs
// end-to-end without one configured.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/loltools/riftcrawl/pkg/riotapi"
)

// Client is a best-effort HTTP implementation of riotapi.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// Config configures Client.
type Config struct {
	// BaseURL is the API host, e.g. "https://na1.api.riotgames.com".
	BaseURL string

	// APIKey is sent as the X-Riot-Token header.
	APIKey string

	// RateLimit and RateBurst bound this client's own local pacing; the
	// real per-account/per-method limits are the production client's
	// job (see package doc).
	RateLimit float64
	RateBurst int

	HTTPClient *http.Client
}

// New builds a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 20
	}
	return &Client{
		httpClient: hc,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("riotapi: %s: rate wait: %w", op, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("riotapi: %s: build request: %w", op, err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &riotapi.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &riotapi.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("riotapi: %s: decode response: %w", op, err)
		}
	}
	return nil
}

// summonerDTO and leagueEntryDTO mirror the wire shapes this default client
// expects; a production client is free to use a richer schema.
type summonerDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type leagueEntryDTO struct {
	PlayerOrTeamID string `json:"playerOrTeamId"`
	Tier           string `json:"tier"`
	QueueType      string `json:"queueType"`
}

func (c *Client) SummonerIDsByName(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, name := range names {
		var dto summonerDTO
		err := c.do(ctx, "SummonerIDsByName", http.MethodGet, "/lol/summoner/v4/summoners/by-name/"+url.PathEscape(name), nil, &dto)
		if riotapi.IsClientError(err) {
			continue // unknown name: simply absent from the result, per the interface contract
		}
		if err != nil {
			return nil, err
		}
		out[name] = dto.ID
	}
	return out, nil
}

func (c *Client) LeagueEntriesBySummonerIDs(ctx context.Context, queue riotapi.Queue, summonerIDs []int64) ([]riotapi.LeagueEntry, error) {
	var out []riotapi.LeagueEntry
	for _, id := range summonerIDs {
		var dtos []leagueEntryDTO
		path := "/lol/league/v4/entries/by-summoner/" + strconv.FormatInt(id, 10)
		err := c.do(ctx, "LeagueEntriesBySummonerIDs", http.MethodGet, path, nil, &dtos)
		if riotapi.IsClientError(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, d := range dtos {
			if d.QueueType != string(queue) {
				continue // ranked standing in another queue
			}
			out = append(out, riotapi.LeagueEntry{PlayerOrTeamID: id, Tier: d.Tier, Queue: queue})
		}
	}
	return out, nil
}

func (c *Client) leagueByTier(ctx context.Context, op, tierPath string, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	var dtos []leagueEntryDTO
	query := url.Values{"queue": []string{string(queue)}}
	if err := c.do(ctx, op, http.MethodGet, tierPath, query, &dtos); err != nil {
		return nil, err
	}
	out := make([]riotapi.LeagueEntry, 0, len(dtos))
	for _, d := range dtos {
		id, err := strconv.ParseInt(d.PlayerOrTeamID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, riotapi.LeagueEntry{PlayerOrTeamID: id, Tier: d.Tier, Queue: queue})
	}
	return out, nil
}

func (c *Client) ChallengerLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return c.leagueByTier(ctx, "ChallengerLeague", "/lol/league/v4/challengerleagues/by-queue/"+string(queue), queue)
}

func (c *Client) MasterLeague(ctx context.Context, queue riotapi.Queue) ([]riotapi.LeagueEntry, error) {
	return c.leagueByTier(ctx, "MasterLeague", "/lol/league/v4/masterleagues/by-queue/"+string(queue), queue)
}

type matchlistDTO struct {
	Matches []struct {
		GameID int64 `json:"gameId"`
	} `json:"matches"`
}

// Matchlist sends the time window as beginTime/endTime. The queue
// argument is not sent, so the returned matches are not restricted to
// that queue.
func (c *Client) Matchlist(ctx context.Context, summonerID int64, queue riotapi.Queue, window riotapi.TimeWindow) ([]riotapi.MatchRef, error) {
	query := url.Values{}
	if !window.Start.IsZero() {
		query.Set("beginTime", strconv.FormatInt(window.Start.UnixMilli(), 10))
	}
	if !window.End.IsZero() {
		query.Set("endTime", strconv.FormatInt(window.End.UnixMilli(), 10))
	}

	var dto matchlistDTO
	path := "/lol/match/v4/matchlists/by-account/" + strconv.FormatInt(summonerID, 10)
	if err := c.do(ctx, "Matchlist", http.MethodGet, path, query, &dto); err != nil {
		return nil, err
	}

	out := make([]riotapi.MatchRef, 0, len(dto.Matches))
	for _, m := range dto.Matches {
		out = append(out, riotapi.MatchRef{MatchID: m.GameID})
	}
	return out, nil
}

type matchDTO struct {
	GameID         int64   `json:"gameId"`
	MapID          int     `json:"mapId"`
	QueueID        int     `json:"queueId"`
	GameVersion    string  `json:"gameVersion"`
	ParticipantIDs []int64 `json:"participantSummonerIds"`
}

func (c *Client) Match(ctx context.Context, matchID int64) (riotapi.Match, error) {
	var dto matchDTO
	path := "/lol/match/v4/matches/" + strconv.FormatInt(matchID, 10)
	if err := c.do(ctx, "Match", http.MethodGet, path, nil, &dto); err != nil {
		return riotapi.Match{}, err
	}

	participants := make([]riotapi.Participant, 0, len(dto.ParticipantIDs))
	for _, id := range dto.ParticipantIDs {
		participants = append(participants, riotapi.Participant{SummonerID: id})
	}

	return riotapi.Match{
		ID:           dto.GameID,
		MapID:        dto.MapID,
		GameVersion:  dto.GameVersion,
		Participants: participants,
	}, nil
}

// versionsURL lists released game versions, newest first. It is served
// from the static data CDN, not the per-region API host, and needs no
// API key or rate budget.
const versionsURL = "https://ddragon.leagueoflegends.com/api/versions.json"

// LatestPatchVersion returns the newest released game version. The
// crawl engine memoizes this lookup to detect patch changes.
func (c *Client) LatestPatchVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionsURL, nil)
	if err != nil {
		return "", fmt.Errorf("riotapi: LatestPatchVersion: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &riotapi.TransportError{Op: "LatestPatchVersion", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &riotapi.APIError{Op: "LatestPatchVersion", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return "", fmt.Errorf("riotapi: LatestPatchVersion: decode response: %w", err)
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("riotapi: LatestPatchVersion: empty version list")
	}
	return versions[0], nil
}

var _ riotapi.Client = (*Client)(nil)
