package crawler

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
)

// pWorkerHandle lets the auto-tuner ask one running P-worker to stop
// without touching the others. The worker terminates at the next loop
// head after its flag is set.
type pWorkerHandle struct {
	stopFlag atomic.Bool
}

func (h *pWorkerHandle) stop() bool { return h.stopFlag.Load() }

// pWorkerLoop is the player-expander loop: take one player ID, fetch
// its matchlist if not already analyzed, push match IDs downstream,
// mark the player analyzed.
func (e *Engine) pWorkerLoop(ctx context.Context, h *pWorkerHandle) {
	defer e.wg.Done()
	defer e.removePWorker(h)

	for {
		if e.frontier.isExiting() || h.stop() {
			return
		}

		id, ok := e.frontier.PopPlayerToAnalyze(h.stop)
		if !ok {
			return
		}
		if e.frontier.IsAnalyzed(id) {
			continue
		}

		e.expandPlayer(ctx, id)
	}
}

func (e *Engine) expandPlayer(ctx context.Context, playerID int64) {
	refs, err := e.gw.Matchlist(ctx, playerID, e.cfg.Window)
	if err != nil {
		e.summary.APIErrors.Add(1)
		triage(e.logger, "matchlist", err, zap.Int64("player_id", playerID))
		e.frontier.MarkAnalyzed(playerID, e.cfg.MaxAnalyzedPlayersSize, e.cfg.EvictionRate)
		return
	}

	ids := make([]int64, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.MatchID)
	}
	e.frontier.AddMatchesToDownload(ids)
	e.frontier.MarkAnalyzed(playerID, e.cfg.MaxAnalyzedPlayersSize, e.cfg.EvictionRate)
	e.summary.PlayersAnalyzed.Add(1)
}

// mWorkerLoop is the match-fetcher loop: take one match ID, fetch it if
// not already downloaded, classify by map, tier, and patch, merge
// participants back upstream, and deliver accepted matches to the
// record sink.
func (e *Engine) mWorkerLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		if e.frontier.isExiting() {
			return
		}

		e.maybeInvalidateOnPatchChange()

		id, ok := e.frontier.PopMatchToDownload()
		if !ok {
			return
		}
		if e.frontier.IsDownloaded(id) {
			continue
		}

		e.fetchMatch(ctx, id)
	}
}

func (e *Engine) fetchMatch(ctx context.Context, matchID int64) {
	match, err := e.gw.Match(ctx, matchID)
	if err != nil {
		e.summary.APIErrors.Add(1)
		triage(e.logger, "match", err, zap.Int64("match_id", matchID))
		e.frontier.MarkDownloaded(matchID)
		return
	}
	e.summary.MatchesDownloaded.Add(1)

	if !checkMap(match.MapID, e.cfg.MapID) {
		e.frontier.MarkDownloaded(matchID)
		return
	}

	minTier, filtered, err := e.gw.GetTierFromParticipants(ctx, match.Participants, e.cfg.MinimumTier)
	if err != nil {
		e.summary.APIErrors.Add(1)
		triage(e.logger, "get_tier_from_participants", err, zap.Int64("match_id", matchID))
		e.frontier.MarkDownloaded(matchID)
		return
	}

	e.pushBackParticipants(filtered)
	e.frontier.MarkDownloaded(matchID)

	if tier.IsBetterOrEqual(minTier, e.cfg.MinimumTier) && e.patchAllowed(match.GameVersion) {
		e.deliver(match, minTier)
	}
}

// pushBackParticipants merges a match's filtered participant IDs into
// players_to_analyze. When MAX_PLAYERS_IN_QUEUE is set and the frontier
// is already over it, the push-back is skipped entirely, providing
// backpressure from fetching into discovery.
func (e *Engine) pushBackParticipants(filtered map[tier.Tier][]int64) {
	if e.cfg.MaxPlayersInQueue > 0 && e.frontier.PlayersToAnalyzeLen() > e.cfg.MaxPlayersInQueue {
		return
	}
	for _, ids := range filtered {
		e.frontier.AddPlayersToAnalyze(ids)
	}
}

// deliver hands an accepted match to the record sink, tagged with its
// minimum observed tier. The call is serialized under the user-function
// lock when the caller requested synchronization.
func (e *Engine) deliver(match riotapi.Match, minTier tier.Tier) {
	rec := newRecord(match)
	tierName := minTier.String()

	if e.cfg.SerializeSink {
		e.userFnMu.Lock()
		defer e.userFnMu.Unlock()
	}

	if err := e.recordSink(rec, tierName); err != nil {
		e.logger.Error("record sink failed", zap.Int64("match_id", match.ID), zap.Error(err))
		return
	}
	e.summary.MatchesAccepted.Add(1)
}
