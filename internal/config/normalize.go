package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/loltools/riftcrawl/pkg/riotapi"
	"github.com/loltools/riftcrawl/pkg/tier"
)

// Runtime is the normalized configuration produced by Normalize: every
// enum parsed, every default applied, every environment override folded
// in. pkg/crawler, pkg/gateway, and pkg/sink see only this, never Raw.
type Runtime struct {
	DestinationDirectory string
	BaseFileName         string
	MatchesPerFile       int

	Queue riotapi.Queue
	MapID int

	MinimumTier  tier.Tier
	MinimumPatch string

	IncludeTimeline bool
	Window          riotapi.TimeWindow

	SeedPlayerIDs []int64
	SeedNames     []string

	Cassiopeia RawCassiopeia
	Archive    RawArchive
	StatusAddr string

	LoggingLevel string

	MaxAnalyzedPlayersSize int
	EvictionRate           float64
	MaxPlayersInQueue      int
	MaxPWorkers            int
	MWorkers               int
	LoggingInterval        time.Duration
}

// queueNames and mapIDs are the closed enumerations accepted for the
// `queue` and `map` keys.
var queueNames = map[string]riotapi.Queue{
	"RANKED_SOLO_5x5": riotapi.QueueRankedSolo5x5,
	"RANKED_TEAM_3x3": riotapi.QueueRankedTeam3x3,
	"RANKED_TEAM_5x5": riotapi.QueueRankedTeam5x5,
}

var mapIDs = map[string]int{
	"SUMMONERS_RIFT": riotapi.SummonersRiftMapID,
}

// Normalize parses raw's enum fields, applies the time-window default
// (start absent means end-or-now minus 30 days), and folds in the
// environment overrides to produce a Runtime. It does not resolve seed
// players from names or the leaderboard; that step needs a gateway and
// is ResolveSeeds's job.
func Normalize(raw *Raw) (*Runtime, error) {
	if raw.DestinationDirectory == "" {
		return nil, fmt.Errorf("config: destination_directory is required")
	}

	queue, ok := queueNames[raw.Queue]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQueue, raw.Queue)
	}

	mapID, ok := mapIDs[raw.Map]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMap, raw.Map)
	}

	minTier, err := tier.Parse(raw.MinimumTier)
	if err != nil {
		return nil, err
	}

	includeTimeline := true
	if raw.IncludeTimeline != nil {
		includeTimeline = *raw.IncludeTimeline
	}

	window := resolveWindow(raw.StartTime, raw.EndTime, time.Now)

	rt := &Runtime{
		DestinationDirectory: raw.DestinationDirectory,
		BaseFileName:         raw.BaseFileName,
		MatchesPerFile:       raw.MatchesPerFile,
		Queue:                queue,
		MapID:                mapID,
		MinimumTier:          minTier,
		MinimumPatch:         raw.MinimumPatch,
		IncludeTimeline:      includeTimeline,
		Window:               window,
		SeedPlayerIDs:        raw.SeedPlayersID,
		SeedNames:            raw.SeedPlayers,
		Cassiopeia:           raw.Cassiopeia,
		Archive:              raw.Archive,
		StatusAddr:           raw.StatusAddr,
		LoggingLevel:         raw.LoggingLevel,
	}

	applyEnvOverrides(rt)
	return rt, nil
}

// resolveWindow applies the time-window defaulting. now is injected so
// tests don't depend on the wall clock.
func resolveWindow(start, end *RawTime, now func() time.Time) riotapi.TimeWindow {
	var endTime time.Time
	if end != nil {
		endTime = end.toTime()
	} else {
		endTime = now()
	}

	var startTime time.Time
	if start != nil {
		startTime = start.toTime()
	} else {
		startTime = endTime.Add(-30 * 24 * time.Hour)
	}

	return riotapi.TimeWindow{Start: startTime, End: endTime}
}

func (rt *RawTime) toTime() time.Time {
	return time.Date(rt.Year, time.Month(rt.Month), rt.Day, rt.Hour, rt.Minute, rt.Second, 0, time.UTC)
}

// Defaults for the environment-overridable engine knobs.
const (
	defaultMaxAnalyzedPlayersSize = 50000
	defaultEvictionRate           = 0.5
	defaultMaxPlayersInQueue      = 0
	defaultMaxPWorkers            = 8
	defaultMWorkers               = 4
	defaultLoggingInterval        = 30 * time.Second
)

func applyEnvOverrides(rt *Runtime) {
	rt.MaxAnalyzedPlayersSize = envInt("MAX_ANALYZED_PLAYERS_SIZE", defaultMaxAnalyzedPlayersSize)
	rt.EvictionRate = envFloat("EVICTION_RATE", defaultEvictionRate)
	rt.MaxPlayersInQueue = envInt("MAX_PLAYERS_IN_QUEUE", defaultMaxPlayersInQueue)
	rt.MaxPWorkers = envInt("MAX_PLAYERS_DOWNLOAD_THREADS", defaultMaxPWorkers)
	rt.MWorkers = envInt("MATCHES_DOWNLOAD_THREADS", defaultMWorkers)
	rt.LoggingInterval = envDuration("LOGGING_INTERVAL", defaultLoggingInterval)
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
