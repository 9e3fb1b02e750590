// Package server implements riftcrawl's optional operator status
// surface: a chi.Router serving GET /healthz and GET /status for a
// process supervisor's liveness probe and an operator's quick look at
// frontier and pool sizes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/crawler"
	"github.com/loltools/riftcrawl/pkg/sink"
	"github.com/loltools/riftcrawl/pkg/tier"
)

// Server owns the chi.Router and the http.Server wrapping it.
type Server struct {
	router    chi.Router
	http      *http.Server
	engine    *crawler.Engine
	store     *sink.TierStore
	logger    *zap.Logger
	startedAt time.Time
}

// New builds a Server reading status from engine and store. store may be
// nil (no per-tier counts reported); engine must not be nil.
func New(engine *crawler.Engine, store *sink.TierStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:    engine,
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	s.router = r

	return s
}

// Router exposes the underlying http.Handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves the status surface on addr until ctx is
// cancelled, then shuts down gracefully. A zero-value addr is treated by
// callers as "status surface disabled" - internal/cmd never calls this
// in that case.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status surface listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the /status payload: current frontier sizes, pool
// sizes, and per-run totals, taken under the same locks the engine
// already holds for its periodic metrics line.
type statusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	PlayersToAnalyze  int `json:"players_to_analyze"`
	AnalyzedPlayers   int `json:"analyzed_players"`
	MatchesToDownload int `json:"matches_to_download"`
	DownloadedMatches int `json:"downloaded_matches"`

	PWorkers int `json:"p_workers"`
	MWorkers int `json:"m_workers"`

	PlayersAnalyzedTotal   int64 `json:"players_analyzed_total"`
	MatchesDownloadedTotal int64 `json:"matches_downloaded_total"`
	MatchesAcceptedTotal   int64 `json:"matches_accepted_total"`
	APIErrorsTotal         int64 `json:"api_errors_total"`

	SinkCounts map[string]int `json:"sink_counts,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f := s.engine.Frontier()
	summary := s.engine.Summary()

	resp := statusResponse{
		UptimeSeconds:          time.Since(s.startedAt).Seconds(),
		PlayersToAnalyze:       f.PlayersToAnalyzeLen(),
		AnalyzedPlayers:        f.AnalyzedPlayersLen(),
		MatchesToDownload:      f.MatchesToDownloadLen(),
		DownloadedMatches:      f.DownloadedMatchesLen(),
		PWorkers:               s.engine.PWorkerCount(),
		MWorkers:               s.engine.MWorkerCount(),
		PlayersAnalyzedTotal:   summary.PlayersAnalyzed.Load(),
		MatchesDownloadedTotal: summary.MatchesDownloaded.Load(),
		MatchesAcceptedTotal:   summary.MatchesAccepted.Load(),
		APIErrorsTotal:         summary.APIErrors.Load(),
	}

	if s.store != nil {
		counts := s.store.Counts()
		resp.SinkCounts = make(map[string]int, len(counts))
		for t, n := range counts {
			resp.SinkCounts[tierKey(t)] = n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func tierKey(t tier.Tier) string { return t.String() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
