// Package config loads vbscan settings from an optional .vbscan.yaml file
// and VBSCAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/phobologic/vbscan/internal/cache"
	"github.com/phobologic/vbscan/internal/coverage"
	"github.com/phobologic/vbscan/internal/graph"
	"github.com/phobologic/vbscan/internal/repair"
)

// FileName is the config file looked up in the working directory.
const FileName = ".vbscan"

// Config is the full vbscan configuration.
type Config struct {
	Discover DiscoverConfig      `mapstructure:"discover"`
	Cache    CacheConfig         `mapstructure:"cache"`
	Graph    GraphConfig         `mapstructure:"graph"`
	Coverage coverage.Thresholds `mapstructure:"coverage"`
	Repair   RepairConfig        `mapstructure:"repair"`
	Audit    AuditConfig         `mapstructure:"audit"`
	Reader   ReaderConfig        `mapstructure:"reader"`
}

// DiscoverConfig controls file discovery.
type DiscoverConfig struct {
	RespectGitignore bool  `mapstructure:"respect_gitignore"`
	MaxFileSize      int64 `mapstructure:"max_file_size"` // bytes, 0 = unlimited
}

// CacheConfig controls the scan result cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

// GraphConfig controls dependency graph analysis.
type GraphConfig struct {
	HubThreshold int `mapstructure:"hub_threshold"`
}

// RepairConfig controls the test repair loop.
type RepairConfig struct {
	MaxIterations int    `mapstructure:"max_iterations"`
	Dir           string `mapstructure:"dir"`
}

// AuditConfig controls the security and accessibility audits.
type AuditConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

// ReaderConfig controls the decoded-file cache.
type ReaderConfig struct {
	CacheEntries int `mapstructure:"cache_entries"`
}

const (
	defaultRepairDir    = ".repairs"
	defaultCacheEntries = 256
)

// New returns a viper instance reading file, or .vbscan.yaml in dir when
// file is empty. A missing implicit config file is not an error.
func New(file, dir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VBSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
		return v, nil
	}

	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetConfigName(FileName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	t := coverage.DefaultThresholds()
	v.SetDefault("discover.respect_gitignore", false)
	v.SetDefault("discover.max_file_size", 0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.file", cache.FileName)
	v.SetDefault("graph.hub_threshold", graph.DefaultHubThreshold)
	v.SetDefault("coverage.lines", t.Lines)
	v.SetDefault("coverage.statements", t.Statements)
	v.SetDefault("coverage.functions", t.Functions)
	v.SetDefault("coverage.branches", t.Branches)
	v.SetDefault("repair.max_iterations", repair.DefaultMaxIterations)
	v.SetDefault("repair.dir", defaultRepairDir)
	v.SetDefault("audit.rules_file", "")
	v.SetDefault("reader.cache_entries", defaultCacheEntries)
}

// Load unmarshals the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills settings a config file blanked out.
func applyDefaults(cfg *Config) {
	if cfg.Cache.File == "" {
		cfg.Cache.File = cache.FileName
	}

	if cfg.Graph.HubThreshold == 0 {
		cfg.Graph.HubThreshold = graph.DefaultHubThreshold
	}

	if cfg.Repair.MaxIterations == 0 {
		cfg.Repair.MaxIterations = repair.DefaultMaxIterations
	}

	if cfg.Repair.Dir == "" {
		cfg.Repair.Dir = defaultRepairDir
	}

	if cfg.Reader.CacheEntries == 0 {
		cfg.Reader.CacheEntries = defaultCacheEntries
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Discover.MaxFileSize < 0 {
		return fmt.Errorf("discover.max_file_size must not be negative")
	}

	if c.Graph.HubThreshold < 0 {
		return fmt.Errorf("graph.hub_threshold must not be negative")
	}

	thresholds := map[string]float64{
		"lines":      c.Coverage.Lines,
		"statements": c.Coverage.Statements,
		"functions":  c.Coverage.Functions,
		"branches":   c.Coverage.Branches,
	}
	for _, m := range coverage.Metrics {
		if pct := thresholds[m]; pct < 0 || pct > 100 {
			return fmt.Errorf("invalid coverage.%s: %v (must be between 0 and 100)", m, pct)
		}
	}

	if c.Repair.MaxIterations < 0 {
		return fmt.Errorf("repair.max_iterations must not be negative")
	}

	if c.Reader.CacheEntries < 0 {
		return fmt.Errorf("reader.cache_entries must not be negative")
	}

	return nil
}
