// Package config loads and persists application configuration. Values are
// layered: built-in defaults, then an optional YAML file, then environment
// variables with the ORDERAUDIT_ prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jlenoir/go-order-audit/internal/rules"
)

// AppConfig is the full application configuration.
type AppConfig struct {
	Detection rules.Config    `json:"detection" yaml:"detection" mapstructure:"detection"`
	Normalize NormalizeConfig `json:"normalize" yaml:"normalize" mapstructure:"normalize"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// NormalizeConfig configures the normalization stage.
type NormalizeConfig struct {
	// DeduplicateByOrderID drops later rows sharing an order identifier.
	DeduplicateByOrderID bool `json:"deduplicate_by_order_id" yaml:"deduplicate_by_order_id" mapstructure:"deduplicate_by_order_id"`
}

// PipelineConfig configures pipeline execution.
type PipelineConfig struct {
	// Workers bounds the profiler's worker pool. Values below 2 select the
	// serial path.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Format     string `json:"format" yaml:"format" mapstructure:"format"`
	Output     string `json:"output" yaml:"output" mapstructure:"output"`
	FilePath   string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Detection: rules.DefaultConfig(),
		Normalize: NormalizeConfig{DeduplicateByOrderID: true},
		Pipeline:  PipelineConfig{Workers: 4},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the optional file at path, and
// ORDERAUDIT_-prefixed environment variables. An empty path skips the file
// layer; a named file that does not exist is an error.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path, creating parent directories
// as needed.
func Save(cfg AppConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setDefaults registers the default configuration values on the viper
// instance so environment and file overrides merge on top of them.
func setDefaults(v *viper.Viper, d AppConfig) {
	v.SetDefault("detection.price_z_threshold", d.Detection.PriceZThreshold)
	v.SetDefault("detection.negative_price_bump", d.Detection.NegativePriceBump)
	v.SetDefault("detection.iqr_factor", d.Detection.IQRFactor)
	v.SetDefault("detection.format_bump", d.Detection.FormatBump)
	v.SetDefault("detection.allowed_countries", d.Detection.AllowedCountries)
	v.SetDefault("normalize.deduplicate_by_order_id", d.Normalize.DeduplicateByOrderID)
	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}
