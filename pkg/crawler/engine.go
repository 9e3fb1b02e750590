// Package crawler implements the crawl engine: two worker pools sharing
// four frontier sets under mutex/condvar guards, an auto-tuner, error
// triage, patch-change invalidation, and checkpoint-driven lifecycle.
package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/cache"
	"github.com/loltools/riftcrawl/pkg/checkpoint"
	"github.com/loltools/riftcrawl/pkg/gateway"
	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
)

// CheckpointSink receives the frontier tuple at clean shutdown, and via
// a guaranteed best-effort path so a crash still leaves a resumable
// state file.
type CheckpointSink func(snap checkpoint.Snapshot) error

// Config configures an Engine. Fields named after an environment
// variable are bound to the process environment by internal/config, not
// by the engine; the engine only ever sees resolved values.
type Config struct {
	Queue        riotapi.Queue
	MapID        int // default riotapi.SummonersRiftMapID
	MinimumTier  tier.Tier
	MinimumPatch string // "" disables the floor; "latest" drives patch-change invalidation
	Window       riotapi.TimeWindow

	PWorkers    int // initial P-worker count
	MaxPWorkers int // MAX_PLAYERS_DOWNLOAD_THREADS
	MWorkers    int // MATCHES_DOWNLOAD_THREADS, fixed

	MaxAnalyzedPlayersSize int     // MAX_ANALYZED_PLAYERS_SIZE
	EvictionRate           float64 // EVICTION_RATE
	MaxPlayersInQueue      int     // MAX_PLAYERS_IN_QUEUE, 0 = unbounded

	LoggingInterval time.Duration // LOGGING_INTERVAL

	// SerializeSink serializes record-sink calls under a dedicated lock.
	// Callers whose sink is not reentrant must set it.
	SerializeSink bool

	// FetchPatchVersion returns the current game patch version. It is
	// memoized internally with a 1-hour TTL. Nil disables patch-change
	// invalidation entirely.
	FetchPatchVersion func(ctx context.Context) (string, error)
}

// Summary accumulates per-run counters, surfaced in the periodic log
// line and the optional /status endpoint.
type Summary struct {
	PlayersAnalyzed   atomic.Int64
	MatchesDownloaded atomic.Int64
	MatchesAccepted   atomic.Int64
	APIErrors         atomic.Int64
}

// Engine is the crawler's runtime: two worker pools over a Frontier, an
// auto-tuner, and a lifecycle ticker.
type Engine struct {
	cfg        Config
	gw         *gateway.Gateway
	frontier   *Frontier
	recordSink RecordSink
	checkSink  CheckpointSink
	logger     *zap.Logger

	userFnMu sync.Mutex

	patchChanged atomic.Bool
	patchMu      sync.Mutex
	patchCache   *cache.Cache
	patchFetch   cache.Fetch

	workersMu sync.Mutex
	pWorkers  []*pWorkerHandle

	runCtx       context.Context
	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	wg sync.WaitGroup

	summary Summary
	tuner   tunerState
}

// New builds an Engine. The frontier starts empty; call
// Frontier().Restore and/or Frontier().AddPlayersToAnalyze before Run to
// populate it.
func New(cfg Config, gw *gateway.Gateway, recordSink RecordSink, checkSink CheckpointSink, logger *zap.Logger) *Engine {
	if cfg.MapID == 0 {
		cfg.MapID = riotapi.SummonersRiftMapID
	}
	if cfg.MaxAnalyzedPlayersSize == 0 {
		cfg.MaxAnalyzedPlayersSize = 50000
	}
	if cfg.EvictionRate == 0 {
		cfg.EvictionRate = 0.5
	}
	if cfg.LoggingInterval == 0 {
		cfg.LoggingInterval = 30 * time.Second
	}

	e := &Engine{
		cfg:        cfg,
		gw:         gw,
		frontier:   NewFrontier(),
		recordSink: recordSink,
		checkSink:  checkSink,
		logger:     logger,
		patchCache: cache.New(),
		runCtx:     context.Background(),
		shutdownCh: make(chan struct{}),
	}

	if cfg.FetchPatchVersion != nil {
		fetch := func(args ...string) (string, error) { return cfg.FetchPatchVersion(context.Background()) }
		e.patchFetch = cache.Autostore("patch_version", time.Hour, e.patchCache, fetch, nil, e.onPatchChange)
	}

	return e
}

// Frontier exposes the engine's frontier for seeding/restoring before
// Run and for read-only inspection (internal/server's /status).
func (e *Engine) Frontier() *Frontier { return e.frontier }

// Summary returns the engine's running totals.
func (e *Engine) Summary() *Summary { return &e.summary }

func (e *Engine) onPatchChange(old, new string) {
	if old == "" {
		// First observation of the run, not a change. A restored
		// downloaded_matches set must survive startup.
		e.logger.Info("patch version observed", zap.String("version", new))
		return
	}
	e.patchChanged.Store(true)
	e.logger.Info("patch version changed", zap.String("old", old), zap.String("new", new))
}

// maybeInvalidateOnPatchChange clears downloaded matches after a patch
// bump, but only when minimum_patch is "latest": matches rejected under
// the old patch become eligible again. A fixed minimum_patch string has
// no reason to treat a later server patch as invalidating prior
// downloads.
func (e *Engine) maybeInvalidateOnPatchChange() {
	if e.patchFetch == nil {
		return
	}
	if _, err := e.patchFetch(); err != nil {
		e.logger.Warn("patch version lookup failed", zap.Error(err))
	}

	if e.cfg.MinimumPatch != "latest" {
		return
	}
	if e.patchChanged.CompareAndSwap(true, false) {
		e.frontier.ClearDownloadedMatches()
	}
}

// Run starts the worker pools and the lifecycle ticker, and blocks until
// ctx is cancelled or Shutdown is called. The checkpoint sink is invoked
// before returning, also when Run's own goroutine panics; a panic inside
// a worker goroutine is not recovered here.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine panic, emitting checkpoint before re-panicking", zap.Any("panic", r))
			e.emitCheckpoint()
			panic(r)
		}
	}()
	defer e.emitCheckpoint()

	e.runCtx = ctx
	for i := 0; i < e.cfg.MWorkers; i++ {
		e.wg.Add(1)
		go e.mWorkerLoop(ctx)
	}
	for i := 0; i < e.cfg.PWorkers; i++ {
		e.spawnPWorker(ctx)
	}

	secondTicker := time.NewTicker(time.Second)
	defer secondTicker.Stop()

	var elapsed time.Duration
	var sinceTune time.Duration

	for {
		select {
		case <-ctx.Done():
			e.frontier.RequestExit()
			e.wg.Wait()
			return ctx.Err()
		case <-e.shutdownCh:
			e.frontier.RequestExit()
			e.wg.Wait()
			return nil
		case <-secondTicker.C:
			elapsed += time.Second
			sinceTune += time.Second

			if elapsed >= e.cfg.LoggingInterval {
				elapsed = 0
				e.logMetrics()
			}
			if sinceTune >= 5*time.Second {
				sinceTune = 0
				e.tick()
			}
		}
	}
}

// Shutdown requests a graceful stop without requiring ctx cancellation.
// It returns once every worker has exited; Run observes the same signal
// and returns nil after emitting the checkpoint.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() { close(e.shutdownCh) })
	e.frontier.RequestExit()
	e.wg.Wait()
}

func (e *Engine) emitCheckpoint() {
	if e.checkSink == nil {
		return
	}
	if err := e.checkSink(e.frontier.Snapshot()); err != nil {
		e.logger.Error("checkpoint write failed", zap.Error(err))
	}
}

func (e *Engine) logMetrics() {
	e.logger.Sugar().Infow("crawl metrics",
		"players_to_analyze", humanize.Comma(int64(e.frontier.PlayersToAnalyzeLen())),
		"analyzed_players", humanize.Comma(int64(e.frontier.AnalyzedPlayersLen())),
		"matches_to_download", humanize.Comma(int64(e.frontier.MatchesToDownloadLen())),
		"downloaded_matches", humanize.Comma(int64(e.frontier.DownloadedMatchesLen())),
		"players_analyzed_total", humanize.Comma(e.summary.PlayersAnalyzed.Load()),
		"matches_downloaded_total", humanize.Comma(e.summary.MatchesDownloaded.Load()),
		"matches_accepted_total", humanize.Comma(e.summary.MatchesAccepted.Load()),
		"api_errors_total", humanize.Comma(e.summary.APIErrors.Load()),
		"p_workers", e.pWorkerCount(),
	)
}

// tick runs the auto-tuner, every 5s.
func (e *Engine) tick() {
	decision := e.tuner.decide(int(e.summary.PlayersAnalyzed.Load()), e.frontier.MatchesToDownloadLen())
	switch decision {
	case tunerGrow:
		e.workersMu.Lock()
		n := len(e.pWorkers)
		e.workersMu.Unlock()
		if e.cfg.MaxPWorkers <= 0 || n < e.cfg.MaxPWorkers {
			e.spawnPWorker(e.runCtx)
			e.logger.Info("auto-tuner: grew p-worker pool", zap.Int("p_workers", n+1))
		}
	case tunerShrink:
		e.shrinkOnePWorker()
	}
}

func (e *Engine) spawnPWorker(ctx context.Context) {
	h := &pWorkerHandle{}
	e.workersMu.Lock()
	e.pWorkers = append(e.pWorkers, h)
	e.workersMu.Unlock()

	e.wg.Add(1)
	go e.pWorkerLoop(ctx, h)
}

// shrinkOnePWorker asks one running P-worker to stop, never dropping
// below one.
func (e *Engine) shrinkOnePWorker() {
	e.workersMu.Lock()
	if len(e.pWorkers) <= 1 {
		e.workersMu.Unlock()
		return
	}
	victim := e.pWorkers[len(e.pWorkers)-1]
	e.workersMu.Unlock()

	victim.stopFlag.Store(true)
	e.frontier.WakePlayers()
	e.logger.Info("auto-tuner: shutting down one p-worker")
}

func (e *Engine) removePWorker(h *pWorkerHandle) {
	e.workersMu.Lock()
	defer e.workersMu.Unlock()
	for i, cur := range e.pWorkers {
		if cur == h {
			e.pWorkers = append(e.pWorkers[:i], e.pWorkers[i+1:]...)
			return
		}
	}
}

func (e *Engine) pWorkerCount() int {
	e.workersMu.Lock()
	defer e.workersMu.Unlock()
	return len(e.pWorkers)
}

// PWorkerCount returns the current number of running P-workers, taken
// under the same lock the auto-tuner and the periodic metrics line use.
func (e *Engine) PWorkerCount() int { return e.pWorkerCount() }

// MWorkerCount returns the fixed number of M-workers configured for this
// run.
func (e *Engine) MWorkerCount() int { return e.cfg.MWorkers }
