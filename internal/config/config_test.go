package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/vbscan/internal/coverage"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v, err := New("", t.TempDir())
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, cfg.Discover.RespectGitignore)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".vb6_scanner_cache.json", cfg.Cache.File)
	assert.Equal(t, 3, cfg.Graph.HubThreshold)
	assert.Equal(t, coverage.DefaultThresholds(), cfg.Coverage)
	assert.Equal(t, 5, cfg.Repair.MaxIterations)
	assert.Equal(t, ".repairs", cfg.Repair.Dir)
	assert.Equal(t, 256, cfg.Reader.CacheEntries)
	assert.NoError(t, cfg.Validate())
}

func TestLoadImplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".vbscan.yaml", `discover:
  respect_gitignore: true
  max_file_size: 1048576
cache:
  enabled: false
  file: ""
coverage:
  branches: 60
audit:
  rules_file: rules.yaml
`)
	v, err := New("", dir)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.True(t, cfg.Discover.RespectGitignore)
	assert.Equal(t, int64(1048576), cfg.Discover.MaxFileSize)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, ".vb6_scanner_cache.json", cfg.Cache.File, "blank values fall back to defaults")
	assert.Equal(t, 60.0, cfg.Coverage.Branches)
	assert.Equal(t, 80.0, cfg.Coverage.Lines)
	assert.Equal(t, "rules.yaml", cfg.Audit.RulesFile)
}

func TestNewExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := New(filepath.Join(dir, "missing.yaml"), dir)
	assert.Error(t, err)

	writeFile(t, dir, "custom.yaml", "graph:\n  hub_threshold: 7\n")
	v, err := New(filepath.Join(dir, "custom.yaml"), dir)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Graph.HubThreshold)

	writeFile(t, dir, ".vbscan.yaml", "cache: [")
	_, err = New("", dir)
	assert.Error(t, err, "a malformed implicit file is still an error")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("VBSCAN_REPAIR_MAX_ITERATIONS", "9")
	t.Setenv("VBSCAN_CACHE_ENABLED", "false")

	v, err := New("", t.TempDir())
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Repair.MaxIterations)
	assert.False(t, cfg.Cache.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Coverage: coverage.DefaultThresholds(),
			Graph:    GraphConfig{HubThreshold: 3},
			Repair:   RepairConfig{MaxIterations: 5},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "negative max file size", mutate: func(c *Config) { c.Discover.MaxFileSize = -1 }, errMsg: "max_file_size"},
		{name: "negative hub threshold", mutate: func(c *Config) { c.Graph.HubThreshold = -2 }, errMsg: "hub_threshold"},
		{name: "threshold above 100", mutate: func(c *Config) { c.Coverage.Lines = 101 }, errMsg: "invalid coverage.lines"},
		{name: "negative threshold", mutate: func(c *Config) { c.Coverage.Branches = -5 }, errMsg: "invalid coverage.branches"},
		{name: "negative iterations", mutate: func(c *Config) { c.Repair.MaxIterations = -1 }, errMsg: "max_iterations"},
		{name: "negative cache entries", mutate: func(c *Config) { c.Reader.CacheEntries = -1 }, errMsg: "cache_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
