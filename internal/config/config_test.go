package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "aue", cfg.Warehouse.Schema)
	assert.Equal(t, "jina-embeddings-v3", cfg.Jina.Model)
	assert.Equal(t, 1024, cfg.Jina.Dimension)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 65.0, cfg.Matcher.MinSimilarity)
	assert.Equal(t, 60.0, cfg.Matcher.RecoveryMinSimilarity)
	assert.Equal(t, 88.0, cfg.Matcher.HighTierCut)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PRICEWATCH_ENGINE_WORKERS", "8")
	t.Setenv("PRICEWATCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBrokenMatcherConfig(t *testing.T) {
	t.Setenv("PRICEWATCH_MATCHER_LEXICAL_WEIGHT", "0.9")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingConfigFileIsFine(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
