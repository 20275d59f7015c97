package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "index", cfg.Index.DataDir)
	assert.Equal(t, "standard", cfg.Index.Analyzer)
	assert.Equal(t, "query-text", cfg.Eval.QueriesPath)
	assert.Equal(t, "rlv-ass", cfg.Eval.JudgmentsPath)
	assert.Equal(t, 100, cfg.Eval.TestDepth)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "npleval.yaml")
	data := []byte(`
index:
  dataDir: /tmp/npl-index
  analyzer: english
eval:
  outputDir: results
redis:
  enabled: true
  cacheTTL: 90s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("NPLEVAL_LOGGING_LEVEL", "debug")
	t.Setenv("NPLEVAL_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/npl-index", cfg.Index.DataDir)
	assert.Equal(t, "english", cfg.Index.Analyzer)
	assert.Equal(t, "results", cfg.Eval.OutputDir)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	// Defaults survive partial files.
	assert.Equal(t, "query-text", cfg.Eval.QueriesPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eval:\n  testDepth: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testDepth")
}

func TestPostgresDSN(t *testing.T) {
	cfg := Default()
	assert.Equal(t,
		"host=localhost port=5432 user=npleval password=localdev dbname=npleval sslmode=disable",
		cfg.Postgres.DSN(),
	)
}
