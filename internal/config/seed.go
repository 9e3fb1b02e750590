package config

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/loltools/riftcrawl/pkg/gateway"
)

// seedBackoffCap bounds the exponential backoff ResolveSeeds applies
// between retries.
const seedBackoffCap = 30 * time.Second

// ResolveSeeds resolves the crawl's seed players: explicit IDs first,
// then names resolved through the gateway, then the challenger+master
// leaderboards. Any gateway error is retried with capped exponential
// backoff until ctx is cancelled, since a transient failure during
// startup must not be fatal.
func ResolveSeeds(ctx context.Context, gw *gateway.Gateway, rt *Runtime, logger *zap.Logger) ([]int64, error) {
	if len(rt.SeedPlayerIDs) > 0 {
		return rt.SeedPlayerIDs, nil
	}

	if len(rt.SeedNames) > 0 {
		byName, err := retryIndefinitely(ctx, logger, "resolve seed names", func() (map[string]int64, error) {
			return gw.SummonerNamesToID(ctx, rt.SeedNames)
		})
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(byName))
		for _, id := range byName {
			ids = append(ids, id)
		}
		return ids, nil
	}

	return retryIndefinitely(ctx, logger, "resolve challenger+master seeds", func() ([]int64, error) {
		return gw.ChallengerAndMasterIDs(ctx)
	})
}

// retryIndefinitely calls fn, retrying with capped exponential backoff on
// error until it succeeds or ctx is cancelled.
func retryIndefinitely[T any](ctx context.Context, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	backoff := time.Second
	for {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if logger != nil {
			logger.Warn("seed resolution failed, retrying", zap.String("op", op), zap.Error(err), zap.Duration("backoff", backoff))
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > seedBackoffCap {
			backoff = seedBackoffCap
		}
	}
}
