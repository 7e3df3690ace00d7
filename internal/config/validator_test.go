package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStatic_Default(t *testing.T) {
	assert.NoError(t, ValidateStatic(Default()))
}

func TestValidateCorrelation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *CorrelationConfig)
		field  string
	}{
		{
			name:   "empty id field",
			mutate: func(c *CorrelationConfig) { c.IDField = "  " },
			field:  "correlation.id_field",
		},
		{
			name:   "zero timeout",
			mutate: func(c *CorrelationConfig) { c.TimeoutMs = 0 },
			field:  "correlation.timeout_ms",
		},
		{
			name:   "negative cleanup interval",
			mutate: func(c *CorrelationConfig) { c.CleanupIntervalMs = -5 },
			field:  "correlation.cleanup_interval_ms",
		},
		{
			name: "rule without matchers",
			mutate: func(c *CorrelationConfig) {
				c.FlushTriggers = []TriggerConfig{{Name: "empty"}}
			},
			field: "correlation.flush_triggers[0].match",
		},
		{
			name: "matcher without field",
			mutate: func(c *CorrelationConfig) {
				c.CompletionTriggers = []TriggerConfig{{Match: []MatcherConfig{{Kind: "equals", Value: "done"}}}}
			},
			field: "correlation.completion_triggers[0].match[0].field",
		},
		{
			name: "unknown kind",
			mutate: func(c *CorrelationConfig) {
				c.FlushTriggers = []TriggerConfig{{Match: []MatcherConfig{{Field: "level", Kind: "glob", Value: "err*"}}}}
			},
			field: "correlation.flush_triggers[0].match[0].kind",
		},
		{
			name: "missing value",
			mutate: func(c *CorrelationConfig) {
				c.FlushTriggers = []TriggerConfig{{Match: []MatcherConfig{{Field: "level", Kind: "equals"}}}}
			},
			field: "correlation.flush_triggers[0].match[0].value",
		},
		{
			name: "expr that does not compile",
			mutate: func(c *CorrelationConfig) {
				c.FlushTriggers = []TriggerConfig{{Match: []MatcherConfig{{Field: "status", Kind: "expr", Value: "value >"}}}}
			},
			field: "correlation.flush_triggers[0].match[0].value",
		},
		{
			name: "expr that is not a predicate",
			mutate: func(c *CorrelationConfig) {
				c.CompletionTriggers = []TriggerConfig{{Match: []MatcherConfig{{Field: "status", Kind: "expr", Value: `"done"`}}}}
			},
			field: "correlation.completion_triggers[0].match[0].value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Correlation
			tt.mutate(&cfg)

			err := validateCorrelation(cfg)
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidateCorrelation_ExprPredicate(t *testing.T) {
	cfg := Default().Correlation
	cfg.FlushTriggers = []TriggerConfig{
		{Match: []MatcherConfig{{Field: "status", Kind: "expr", Value: "value >= 500"}}},
	}
	assert.NoError(t, validateCorrelation(cfg))
}

func TestValidateLogging(t *testing.T) {
	assert.NoError(t, validateLogging(LoggingConfig{Level: "INFO", Format: "console"}))
	assert.Error(t, validateLogging(LoggingConfig{Level: "verbose", Format: "json"}))
	assert.Error(t, validateLogging(LoggingConfig{Level: "info", Format: "xml"}))
}
