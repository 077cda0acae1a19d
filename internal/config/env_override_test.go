package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("FIXTURELINT_CACHE sets cache path", func(t *testing.T) {
		t.Setenv("FIXTURELINT_CACHE", "/tmp/fx.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/fx.db", cfg.Cache.Path)
	})

	t.Run("FIXTURELINT_LOG_LEVEL sets level", func(t *testing.T) {
		t.Setenv("FIXTURELINT_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.IsCategoryEnabled("world"))
	})

	t.Run("FIXTURELINT_WORKERS ignores garbage", func(t *testing.T) {
		t.Setenv("FIXTURELINT_WORKERS", "lots")

		cfg := DefaultConfig()
		want := cfg.World.MaxConcurrency
		cfg.applyEnvOverrides()

		assert.Equal(t, want, cfg.World.MaxConcurrency)
	})

	t.Run("FIXTURELINT_WORKERS applies positive values", func(t *testing.T) {
		t.Setenv("FIXTURELINT_WORKERS", "3")

		cfg, err := Load(t.TempDir() + "/missing.yaml")
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.World.MaxConcurrency)
	})
}
