package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir for toolchains older than Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestValidate(t *testing.T) {
	valid := Config{
		Build: BuildConfig{ProjectDir: ".", AppDir: "app", OutDir: "dist"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty project dir", func(c *Config) { c.Build.ProjectDir = "" }},
		{"empty out dir", func(c *Config) { c.Build.OutDir = "" }},
		{"mirror subtree without variant", func(c *Config) { c.Mirror.Subtree = "node_modules/lib/dist/" }},
		{"mirror variant without subtree", func(c *Config) { c.Mirror.Variant = "node_modules/lib/dist/esm/" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Build.ProjectDir)
	assert.Equal(t, "app", cfg.Build.AppDir)
	assert.Equal(t, "dist", cfg.Build.OutDir)
	assert.False(t, cfg.Build.Production)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHUNKMAP_BUILD_OUT_DIR", "build-out")
	t.Setenv("CHUNKMAP_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "build-out", cfg.Build.OutDir)
	assert.True(t, cfg.Debug)
}
