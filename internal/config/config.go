// Package config implements configuration preparation: loading the
// operator's JSON/YAML configuration file, applying environment
// overrides, and normalizing the result into the runtime shape
// pkg/crawler and pkg/gateway consume.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Raw is the operator's configuration object as decoded directly from
// the file, before any defaulting or parsing of tier/queue/map enums.
// Field names match the JSON/YAML keys.
type Raw struct {
	DestinationDirectory string `mapstructure:"destination_directory"`
	BaseFileName         string `mapstructure:"base_file_name"`
	MatchesPerFile       int    `mapstructure:"matches_per_file"`

	Queue string `mapstructure:"queue"`
	Map   string `mapstructure:"map"`

	MinimumTier  string `mapstructure:"minimum_tier"`
	MinimumPatch string `mapstructure:"minimum_patch"`

	IncludeTimeline *bool `mapstructure:"include_timeline"`

	StartTime *RawTime `mapstructure:"start_time"`
	EndTime   *RawTime `mapstructure:"end_time"`

	SeedPlayers   []string `mapstructure:"seed_players"`
	SeedPlayersID []int64  `mapstructure:"seed_players_id"`

	Cassiopeia RawCassiopeia `mapstructure:"cassiopeia"`

	LoggingLevel string `mapstructure:"logging_level"`

	// Archive and StatusAddr enable the optional cold-archive upload
	// and operator status surface; both default to inert/disabled.
	Archive    RawArchive `mapstructure:"archive"`
	StatusAddr string     `mapstructure:"status_addr"`
}

// RawTime is the start_time/end_time object shape.
type RawTime struct {
	Year   int `mapstructure:"year"`
	Month  int `mapstructure:"month"`
	Day    int `mapstructure:"day"`
	Hour   int `mapstructure:"hour"`
	Minute int `mapstructure:"minute"`
	Second int `mapstructure:"second"`
}

// RawCassiopeia holds the cassiopeia.* keys. The namespace name comes
// from the League-of-Legends client library older deployments used;
// kept since that's what an operator's existing config file contains.
type RawCassiopeia struct {
	APIKey     string         `mapstructure:"api_key"`
	Region     string         `mapstructure:"region"`
	RateLimits RateLimitPairs `mapstructure:"rate_limits"`
	PrintCalls bool           `mapstructure:"print_calls"`
}

// RateLimitPairs is a list of [count, seconds] rate-limit pairs. The
// rate_limits key accepts either one flat pair or a list of pairs; the
// flat form is promoted by rateLimitsHook during decode.
type RateLimitPairs [][2]float64

// RawArchive configures the optional cold-archive S3 upload. Disabled
// unless Enabled is explicitly set.
type RawArchive struct {
	Enabled  bool   `mapstructure:"enabled"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// envBindings are the engine tuning knobs overridable from the process
// environment. They are not config-file keys, so they are bound directly
// rather than being part of the Raw struct's own mapstructure path.
var envBindings = []string{
	"MAX_ANALYZED_PLAYERS_SIZE",
	"EVICTION_RATE",
	"MAX_PLAYERS_IN_QUEUE",
	"MAX_PLAYERS_DOWNLOAD_THREADS",
	"MATCHES_DOWNLOAD_THREADS",
	"LOGGING_INTERVAL",
}

// LoadRaw reads path (JSON or YAML, detected by extension) and decodes
// it into Raw, applying the documented defaults for fields the file
// omits.
func LoadRaw(path string) (*Raw, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("base_file_name", "")
	v.SetDefault("matches_per_file", 0)
	v.SetDefault("queue", "RANKED_SOLO_5x5")
	v.SetDefault("map", "SUMMONERS_RIFT")
	v.SetDefault("minimum_tier", "bronze")
	v.SetDefault("minimum_patch", "")
	v.SetDefault("include_timeline", true)
	v.SetDefault("logging_level", "NOTSET")

	for _, name := range envBindings {
		_ = v.BindEnv(name)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw Raw
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		rateLimitsHook,
	)
	if err := v.Unmarshal(&raw, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	raw.DestinationDirectory = substituteFileDir(raw.DestinationDirectory, path)
	return &raw, nil
}

// rateLimitsHook promotes a flat [count, seconds] pair to a one-element
// list so both accepted rate_limits shapes decode into RateLimitPairs.
func rateLimitsHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != reflect.TypeOf(RateLimitPairs(nil)) {
		return data, nil
	}
	raw, ok := data.([]interface{})
	if !ok || len(raw) == 0 {
		return data, nil
	}
	// A flat pair's first element is a number; a list's is another pair.
	if _, nested := raw[0].([]interface{}); !nested {
		return []interface{}{raw}, nil
	}
	return data, nil
}

// substituteFileDir replaces a leading __file__ token with the absolute
// directory of the config file.
func substituteFileDir(value, configPath string) string {
	const token = "__file__"
	if !strings.HasPrefix(value, token) {
		return value
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return value
	}
	return strings.Replace(value, token, filepath.Dir(abs), 1)
}
