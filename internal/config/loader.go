package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"quietlog/internal/constants"
)

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"id-field":         "correlation.id_field",
	"timeout":          "correlation.timeout_ms",
	"cleanup-interval": "correlation.cleanup_interval_ms",
	"auto-decompress":  "input.auto_decompress",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"metrics-addr":     "metrics.listen_addr",
}

// LoadConfig resolves the configuration from defaults, the optional YAML
// file, the environment and finally any changed flags. A file that cannot be
// read or parsed is reported through Config.FileError and otherwise ignored;
// values that are present but invalid fail the load.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVariables(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var fileErr error
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			fileErr = fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.FileError = fileErr

	if !v.IsSet("correlation.flush_triggers") {
		cfg.Correlation.FlushTriggers = DefaultFlushTriggers()
	}
	if cfg.Correlation.CompletionTriggers == nil {
		cfg.Correlation.CompletionTriggers = []TriggerConfig{}
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("correlation.id_field", constants.DefaultIDField)
	v.SetDefault("correlation.timeout_ms", constants.DefaultTimeoutMs)
	v.SetDefault("correlation.cleanup_interval_ms", constants.DefaultCleanupIntervalMs)
	v.SetDefault("input.auto_decompress", true)
	v.SetDefault("logging.level", constants.DefaultLogLevel)
	v.SetDefault("logging.format", constants.DefaultLogFormat)
	v.SetDefault("metrics.listen_addr", "")
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("correlation.id_field", "CORRELATION_ID_FIELD")
	v.BindEnv("correlation.timeout_ms", "CORRELATION_TIMEOUT_MS")
	v.BindEnv("correlation.cleanup_interval_ms", "CORRELATION_CLEANUP_INTERVAL_MS")

	v.BindEnv("input.auto_decompress", "INPUT_AUTO_DECOMPRESS")

	v.BindEnv("logging.level", "LOGGING_LEVEL")
	v.BindEnv("logging.format", "LOGGING_FORMAT")

	v.BindEnv("metrics.listen_addr", "METRICS_LISTEN_ADDR")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
	}
	return nil
}
