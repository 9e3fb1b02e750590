package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/checkpoint"
	"github.com/loltools/riftcrawl/pkg/crawler"
	"github.com/loltools/riftcrawl/pkg/gateway"
	"github.com/loltools/riftcrawl/pkg/riotapi/httpclient"
	"github.com/loltools/riftcrawl/pkg/sink"
	"github.com/loltools/riftcrawl/pkg/tier"

	"github.com/loltools/riftcrawl/internal/config"
	"github.com/loltools/riftcrawl/internal/observability"
	"github.com/loltools/riftcrawl/internal/server"
)

// runOptions distinguishes crawl from resume (both share everything
// else): resume always attempts to load a prior checkpoint, crawl only
// does so when noState is false and a checkpoint happens to already
// exist.
type runOptions struct {
	configPath string
	noState    bool
	mustResume bool
}

// runCrawl wires every collaborator (config, gateway, sink, checkpoint,
// engine) and runs the engine to completion or until an OS signal
// requests a stop. It is the shared core behind both the crawl and
// resume subcommands.
func runCrawl(opts runOptions) error {
	raw, err := config.LoadRaw(opts.configPath)
	if err != nil {
		return exitError(exitInvalidConfig, "load configuration", err)
	}

	rt, err := config.Normalize(raw)
	if err != nil {
		return exitError(exitInvalidConfig, "normalize configuration", err)
	}

	logger, sync, err := observability.Init(rt.LoggingLevel, observability.FileConfig{})
	if err != nil {
		return exitError(exitInvalidConfig, "initialize logging", err)
	}
	defer sync()

	// runID gives every log line for this process one correlatable value.
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httpclient.New(httpclient.Config{
		BaseURL:   cassiopeiaBaseURL(rt.Cassiopeia.Region),
		APIKey:    rt.Cassiopeia.APIKey,
		RateLimit: cassiopeiaRateLimit(rt.Cassiopeia.RateLimits),
		RateBurst: cassiopeiaRateBurst(rt.Cassiopeia.RateLimits),
	})
	gw := gateway.New(gateway.Config{Client: client, Queue: rt.Queue})

	seeds, err := config.ResolveSeeds(ctx, gw, rt, logger)
	if err != nil {
		return exitError(exitRuntimeError, "resolve seed players", err)
	}

	var archiver sink.Archiver
	if rt.Archive.Enabled {
		archiver, err = sink.NewS3Archiver(ctx, sink.S3ArchiverConfig{
			Bucket:   rt.Archive.Bucket,
			Prefix:   rt.Archive.Prefix,
			Region:   rt.Archive.Region,
			Endpoint: rt.Archive.Endpoint,
		})
		if err != nil {
			return exitError(exitInvalidConfig, "configure archive upload", err)
		}
	}

	store := sink.NewTierStore(sink.TierStoreConfig{
		Dir:            rt.DestinationDirectory,
		Prefix:         rt.BaseFileName,
		MatchesPerFile: rt.MatchesPerFile,
		Archiver:       archiver,
	})
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing sink", zap.Error(err))
		}
	}()

	recordSink := func(rec crawler.Record, tierName string) error {
		line, err := rec.ToJSONLine()
		if err != nil {
			return err
		}
		t, err := tier.Parse(tierName)
		if err != nil {
			return fmt.Errorf("run: unexpected tier name %q: %w", tierName, err)
		}
		return store.Write(t, line)
	}

	cpPath := checkpointPath(opts.configPath)
	var checkSink crawler.CheckpointSink
	if !opts.noState {
		checkSink = func(snap checkpoint.Snapshot) error {
			return checkpoint.Write(cpPath, snap)
		}
	}

	engine := crawler.New(crawler.Config{
		Queue:                  rt.Queue,
		MapID:                  rt.MapID,
		MinimumTier:            rt.MinimumTier,
		MinimumPatch:           rt.MinimumPatch,
		Window:                 rt.Window,
		PWorkers:               1,
		MaxPWorkers:            rt.MaxPWorkers,
		MWorkers:               rt.MWorkers,
		MaxAnalyzedPlayersSize: rt.MaxAnalyzedPlayersSize,
		EvictionRate:           rt.EvictionRate,
		MaxPlayersInQueue:      rt.MaxPlayersInQueue,
		LoggingInterval:        rt.LoggingInterval,
		FetchPatchVersion:      client.LatestPatchVersion,
		// The sink writes into per-tier Store files that are not
		// concurrency-safe, so record delivery must be serialized.
		SerializeSink: true,
	}, gw, recordSink, checkSink, logger)

	restored := false
	if !opts.noState {
		if snap, err := checkpoint.Read(cpPath); err == nil {
			engine.Frontier().Restore(snap)
			restored = true
			logger.Info("restored checkpoint", zap.String("path", cpPath))
		} else if opts.mustResume && !os.IsNotExist(err) {
			return exitError(exitRuntimeError, "read checkpoint", err)
		}
	}
	if opts.mustResume && !restored {
		logger.Warn("resume requested but no checkpoint was found, starting fresh", zap.String("path", cpPath))
	}
	if !restored {
		engine.Frontier().AddPlayersToAnalyze(seeds)
	}

	if rt.StatusAddr != "" {
		srv := server.New(engine, store, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, rt.StatusAddr); err != nil {
				logger.Error("status surface stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("starting crawl",
		zap.String("queue", string(rt.Queue)),
		zap.String("minimum_tier", rt.MinimumTier.String()),
		zap.Int("seed_players", len(seeds)),
		zap.Bool("resumed", restored),
	)

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		return exitError(exitRuntimeError, "crawl failed", err)
	}
	return nil
}

// checkpointPath resolves the checkpoint sibling of configPath, per
// checkpoint.PathForConfig.
func checkpointPath(configPath string) string {
	return checkpoint.PathForConfig(configPath)
}

// cassiopeiaBaseURL maps a cassiopeia-style platform region (e.g.
// "na1") onto the corresponding API host; riftcrawl's default
// httpclient needs a concrete host, not a region code.
func cassiopeiaBaseURL(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		region = "na1"
	}
	return fmt.Sprintf("https://%s.api.riotgames.com", region)
}

// cassiopeiaRateLimit reduces the configured (permits, seconds) pairs to
// a single permits-per-second value; the default httpclient only paces
// itself against one limit, so riftcrawl picks the most conservative
// pair.
func cassiopeiaRateLimit(limits [][2]float64) float64 {
	best := 0.0
	for _, pair := range limits {
		if pair[1] <= 0 {
			continue
		}
		rate := pair[0] / pair[1]
		if best == 0 || rate < best {
			best = rate
		}
	}
	return best
}

func cassiopeiaRateBurst(limits [][2]float64) int {
	best := 0
	for _, pair := range limits {
		n := int(pair[0])
		if n <= 0 || pair[1] <= 0 {
			continue
		}
		if best == 0 || n < best {
			best = n
		}
	}
	return best
}
