package crawler

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/loltools/riftcrawl/pkg/checkpoint"
)

// intSet is a plain set of int64 IDs. The frontier sets are flat, not
// tier-bucketed.
type intSet map[int64]struct{}

func (s intSet) add(id int64)       { s[id] = struct{}{} }
func (s intSet) has(id int64) bool  { _, ok := s[id]; return ok }
func (s intSet) remove(id int64)    { delete(s, id) }
func (s intSet) snapshot() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// popOne removes and returns an arbitrary element of s. Callers must
// not depend on order.
func popOne(s intSet) (int64, bool) {
	for id := range s {
		delete(s, id)
		return id, true
	}
	return 0, false
}

// Frontier holds the four shared sets two worker pools coordinate
// through, one (mutex, condvar) pair per frontier/dedup pair. It is
// deliberately not a channel pipeline: the workers need O(1) dedup
// membership checks, which message streams cannot provide.
type Frontier struct {
	ptaMu            sync.Mutex
	playersAvailable *sync.Cond
	playersToAnalyze intSet
	analyzedPlayers  intSet

	mtdMu             sync.Mutex
	matchesAvailable  *sync.Cond
	matchesToDownload intSet
	downloadedMatches intSet

	exiting atomic.Bool

	// rng drives analyzed-players thinning. Seeded from entropy, not a
	// fixed stream, so concurrent crawler instances do not evict the
	// same keys. Only touched under ptaMu.
	rng *rand.Rand
}

// NewFrontier builds an empty Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		playersToAnalyze:  make(intSet),
		analyzedPlayers:   make(intSet),
		matchesToDownload: make(intSet),
		downloadedMatches: make(intSet),
		rng:               rand.New(rand.NewSource(rand.Int63())),
	}
	f.playersAvailable = sync.NewCond(&f.ptaMu)
	f.matchesAvailable = sync.NewCond(&f.mtdMu)
	return f
}

// Restore seeds the frontier from a prior checkpoint snapshot, merging
// rather than replacing so a caller can combine a resumed checkpoint
// with freshly configured seeds.
func (f *Frontier) Restore(snap checkpoint.Snapshot) {
	f.ptaMu.Lock()
	for _, id := range snap.PlayersToAnalyze {
		f.playersToAnalyze.add(id)
	}
	for _, id := range snap.AnalyzedPlayers {
		f.analyzedPlayers.add(id)
	}
	f.ptaMu.Unlock()

	f.mtdMu.Lock()
	for _, id := range snap.MatchesToDownload {
		f.matchesToDownload.add(id)
	}
	for _, id := range snap.DownloadedMatches {
		f.downloadedMatches.add(id)
	}
	f.mtdMu.Unlock()
}

// Snapshot captures the frontier tuple for checkpointing.
func (f *Frontier) Snapshot() checkpoint.Snapshot {
	f.ptaMu.Lock()
	pta := f.playersToAnalyze.snapshot()
	ap := f.analyzedPlayers.snapshot()
	f.ptaMu.Unlock()

	f.mtdMu.Lock()
	mtd := f.matchesToDownload.snapshot()
	dm := f.downloadedMatches.snapshot()
	f.mtdMu.Unlock()

	return checkpoint.Snapshot{
		PlayersToAnalyze:  pta,
		AnalyzedPlayers:   ap,
		MatchesToDownload: mtd,
		DownloadedMatches: dm,
	}
}

// RequestExit sets the exit flag and wakes every worker blocked on
// either condition variable so it can observe the flag.
func (f *Frontier) RequestExit() {
	f.exiting.Store(true)

	f.ptaMu.Lock()
	f.playersAvailable.Broadcast()
	f.ptaMu.Unlock()

	f.mtdMu.Lock()
	f.matchesAvailable.Broadcast()
	f.mtdMu.Unlock()
}

func (f *Frontier) isExiting() bool { return f.exiting.Load() }

// AddPlayersToAnalyze adds ids to players_to_analyze and signals any
// P-worker waiting on an empty frontier.
func (f *Frontier) AddPlayersToAnalyze(ids []int64) {
	if len(ids) == 0 {
		return
	}
	f.ptaMu.Lock()
	for _, id := range ids {
		f.playersToAnalyze.add(id)
	}
	f.ptaMu.Unlock()
	f.playersAvailable.Broadcast()
}

// PopPlayerToAnalyze blocks until players_to_analyze is non-empty, the
// engine is exiting, or stop reports true, then pops and returns one ID.
// stop lets an individual P-worker be asked to terminate without
// requiring the whole engine to exit; WakePlayers must be called after
// setting that flag so a blocked worker re-evaluates it.
func (f *Frontier) PopPlayerToAnalyze(stop func() bool) (int64, bool) {
	f.ptaMu.Lock()
	defer f.ptaMu.Unlock()

	for len(f.playersToAnalyze) == 0 && !f.isExiting() && !stop() {
		f.playersAvailable.Wait()
	}
	if len(f.playersToAnalyze) == 0 || stop() {
		return 0, false
	}
	return popOne(f.playersToAnalyze)
}

// WakePlayers broadcasts players_available without mutating the set,
// used to make a blocked P-worker re-check its own stop flag.
func (f *Frontier) WakePlayers() {
	f.ptaMu.Lock()
	f.playersAvailable.Broadcast()
	f.ptaMu.Unlock()
}

// IsAnalyzed reports whether id has already been expanded.
func (f *Frontier) IsAnalyzed(id int64) bool {
	f.ptaMu.Lock()
	defer f.ptaMu.Unlock()
	return f.analyzedPlayers.has(id)
}

// MarkAnalyzed records id as analyzed. If the set now exceeds maxSize,
// each element is kept with probability 1-evictionRate; a thinned-out
// player may be re-analyzed later.
func (f *Frontier) MarkAnalyzed(id int64, maxSize int, evictionRate float64) {
	f.ptaMu.Lock()
	defer f.ptaMu.Unlock()

	f.analyzedPlayers.add(id)
	if maxSize <= 0 || len(f.analyzedPlayers) <= maxSize {
		return
	}

	for existing := range f.analyzedPlayers {
		if f.rng.Float64() < evictionRate {
			delete(f.analyzedPlayers, existing)
		}
	}
}

// PlayersToAnalyzeLen returns |players_to_analyze|, used for the
// MAX_PLAYERS_IN_QUEUE backpressure check and metrics.
func (f *Frontier) PlayersToAnalyzeLen() int {
	f.ptaMu.Lock()
	defer f.ptaMu.Unlock()
	return len(f.playersToAnalyze)
}

// AnalyzedPlayersLen returns |analyzed_players|.
func (f *Frontier) AnalyzedPlayersLen() int {
	f.ptaMu.Lock()
	defer f.ptaMu.Unlock()
	return len(f.analyzedPlayers)
}

// AddMatchesToDownload adds ids to matches_to_download and signals any
// M-worker waiting on an empty frontier.
func (f *Frontier) AddMatchesToDownload(ids []int64) {
	if len(ids) == 0 {
		return
	}
	f.mtdMu.Lock()
	for _, id := range ids {
		f.matchesToDownload.add(id)
	}
	f.mtdMu.Unlock()
	f.matchesAvailable.Broadcast()
}

// PopMatchToDownload blocks until matches_to_download is non-empty or the
// engine is exiting, then pops and returns one match ID.
func (f *Frontier) PopMatchToDownload() (int64, bool) {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()

	for len(f.matchesToDownload) == 0 && !f.isExiting() {
		f.matchesAvailable.Wait()
	}
	if len(f.matchesToDownload) == 0 {
		return 0, false
	}
	return popOne(f.matchesToDownload)
}

// IsDownloaded reports whether matchID has already been fetched.
func (f *Frontier) IsDownloaded(matchID int64) bool {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()
	return f.downloadedMatches.has(matchID)
}

// MarkDownloaded records matchID as fetched.
func (f *Frontier) MarkDownloaded(matchID int64) {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()
	f.downloadedMatches.add(matchID)
}

// MatchesToDownloadLen returns |matches_to_download|, read by the
// auto-tuner and the periodic metrics line.
func (f *Frontier) MatchesToDownloadLen() int {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()
	return len(f.matchesToDownload)
}

// DownloadedMatchesLen returns |downloaded_matches|.
func (f *Frontier) DownloadedMatchesLen() int {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()
	return len(f.downloadedMatches)
}

// ClearDownloadedMatches empties downloaded_matches. Only the
// patch-change invalidation path calls this, and only when
// minimum_patch is "latest".
func (f *Frontier) ClearDownloadedMatches() {
	f.mtdMu.Lock()
	defer f.mtdMu.Unlock()
	f.downloadedMatches = make(intSet)
}
