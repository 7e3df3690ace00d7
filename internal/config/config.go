package config

import (
	"time"

	"quietlog/internal/constants"
)

type Config struct {
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Input       InputConfig       `mapstructure:"input"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`

	// FileError is set when a config file was requested but could not be
	// read or parsed. The run continues on defaults in that case.
	FileError error `mapstructure:"-"`
}

type CorrelationConfig struct {
	IDField            string          `mapstructure:"id_field"`
	TimeoutMs          int64           `mapstructure:"timeout_ms"` // since the last line of the transaction
	CleanupIntervalMs  int64           `mapstructure:"cleanup_interval_ms"`
	FlushTriggers      []TriggerConfig `mapstructure:"flush_triggers"`
	CompletionTriggers []TriggerConfig `mapstructure:"completion_triggers"`
}

func (c CorrelationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c CorrelationConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMs) * time.Millisecond
}

// TriggerConfig is one rule: it matches a record when any of its field
// matchers matches.
type TriggerConfig struct {
	Name  string          `mapstructure:"name"`
	Match []MatcherConfig `mapstructure:"match"`
}

// MatcherConfig is an explicitly tagged field matcher. Kind selects how
// Value is interpreted:
//
//	equals      string, case-insensitive
//	equals_int  integer
//	one_of      list of strings, case-insensitive
//	one_of_int  list of integers
//	regex       pattern string, case-insensitive
//	expr        CEL predicate over the variable `value`
type MatcherConfig struct {
	Field string      `mapstructure:"field"`
	Kind  string      `mapstructure:"kind"`
	Value interface{} `mapstructure:"value"`
}

type InputConfig struct {
	// AutoDecompress transparently inflates gzip or zstd data on stdin.
	AutoDecompress bool `mapstructure:"auto_decompress"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// ListenAddr enables the /metrics and /health endpoints when non-empty.
	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultFlushTriggers matches `level` against error, fatal and critical.
func DefaultFlushTriggers() []TriggerConfig {
	levels := make([]interface{}, 0, len(constants.DefaultFlushLevels))
	for _, l := range constants.DefaultFlushLevels {
		levels = append(levels, l)
	}
	return []TriggerConfig{
		{
			Name: "default",
			Match: []MatcherConfig{
				{Field: constants.DefaultFlushField, Kind: constants.MatcherOneOf, Value: levels},
			},
		},
	}
}

func Default() *Config {
	return &Config{
		Correlation: CorrelationConfig{
			IDField:            constants.DefaultIDField,
			TimeoutMs:          constants.DefaultTimeoutMs,
			CleanupIntervalMs:  constants.DefaultCleanupIntervalMs,
			FlushTriggers:      DefaultFlushTriggers(),
			CompletionTriggers: []TriggerConfig{},
		},
		Input: InputConfig{
			AutoDecompress: true,
		},
		Logging: LoggingConfig{
			Level:  constants.DefaultLogLevel,
			Format: constants.DefaultLogFormat,
		},
	}
}
