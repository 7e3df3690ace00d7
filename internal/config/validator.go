package config

import (
	"fmt"
	"strings"

	"quietlog/internal/constants"
	"quietlog/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateCorrelation(cfg.Correlation); err != nil {
		errors = append(errors, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateCorrelation(cfg CorrelationConfig) error {
	if strings.TrimSpace(cfg.IDField) == "" {
		return &ValidationError{
			Field:   "correlation.id_field",
			Message: "correlation id field is required",
		}
	}

	if cfg.TimeoutMs <= 0 {
		return &ValidationError{
			Field:   "correlation.timeout_ms",
			Message: fmt.Sprintf("timeout must be positive, got %d", cfg.TimeoutMs),
		}
	}

	if cfg.CleanupIntervalMs <= 0 {
		return &ValidationError{
			Field:   "correlation.cleanup_interval_ms",
			Message: fmt.Sprintf("cleanup interval must be positive, got %d", cfg.CleanupIntervalMs),
		}
	}

	if err := validateTriggers("correlation.flush_triggers", cfg.FlushTriggers); err != nil {
		return err
	}

	return validateTriggers("correlation.completion_triggers", cfg.CompletionTriggers)
}

var validMatcherKinds = map[string]bool{
	constants.MatcherEquals:    true,
	constants.MatcherEqualsInt: true,
	constants.MatcherOneOf:     true,
	constants.MatcherOneOfInt:  true,
	constants.MatcherRegex:     true,
	constants.MatcherExpr:      true,
}

// validateTriggers checks rule shape and expr syntax. Other payloads are
// type-checked and compiled when the rule sets are built.
func validateTriggers(field string, triggers []TriggerConfig) error {
	var evaluator *cel.Evaluator
	for i, trigger := range triggers {
		if len(trigger.Match) == 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d].match", field, i),
				Message: "rule must contain at least one field matcher",
			}
		}

		for j, m := range trigger.Match {
			path := fmt.Sprintf("%s[%d].match[%d]", field, i, j)
			if m.Field == "" {
				return &ValidationError{
					Field:   path + ".field",
					Message: "field name is required",
				}
			}
			if !validMatcherKinds[m.Kind] {
				return &ValidationError{
					Field:   path + ".kind",
					Message: fmt.Sprintf("unknown matcher kind: %q (valid: equals, equals_int, one_of, one_of_int, regex, expr)", m.Kind),
				}
			}
			if m.Value == nil {
				return &ValidationError{
					Field:   path + ".value",
					Message: "matcher value is required",
				}
			}
			expression, ok := m.Value.(string)
			if m.Kind != constants.MatcherExpr || !ok {
				continue
			}
			if evaluator == nil {
				var err error
				if evaluator, err = cel.NewEvaluator(); err != nil {
					return err
				}
			}
			if err := evaluator.ValidatePredicate(expression); err != nil {
				return &ValidationError{
					Field:   path + ".value",
					Message: err.Error(),
				}
			}
		}
	}
	return nil
}

func validateLogging(cfg LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(cfg.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	validFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console)", cfg.Format),
		}
	}

	return nil
}
