package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("empty config gets defaults", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()

		assert.Equal(t, "info", cfg.Logger.Level)
		assert.Equal(t, "console", cfg.Logger.Format)
		assert.Equal(t, "auditlens", cfg.Logger.ServiceName)
		assert.Equal(t, 4, cfg.Engine.Workers)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		cfg := Config{
			Logger: LoggerConfig{Level: "debug", Format: "json", ServiceName: "custom"},
			Engine: EngineConfig{Workers: 16},
		}
		cfg.ApplyDefaults()

		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.Equal(t, "json", cfg.Logger.Format)
		assert.Equal(t, "custom", cfg.Logger.ServiceName)
		assert.Equal(t, 16, cfg.Engine.Workers)
	})
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()
		require.NoError(t, cfg.Validate())
	})

	t.Run("format is case-insensitive", func(t *testing.T) {
		cfg := Config{Logger: LoggerConfig{Format: "JSON"}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		cfg := Config{Logger: LoggerConfig{Format: "xml"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format")
	})

	t.Run("negative workers rejected", func(t *testing.T) {
		cfg := Config{Engine: EngineConfig{Workers: -1}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.workers")
	})
}
