package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

func testCmd(run func(cmd *cobra.Command, args []string) error) (*cobra.Command, *Options, *bytes.Buffer) {
	var opts Options
	cmd := &cobra.Command{Use: "npl-test", Args: ExactArgs(0), RunE: run}
	opts.Bind(cmd)
	cmd.Flags().Int("cut", 0, "cut")
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	return cmd, &opts, &stderr
}

func TestExecuteExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  error
		want int
	}{
		{"ok", nil, nil, apperrors.ExitOK},
		{"usage", nil, apperrors.Usagef("--docs is required"), apperrors.ExitUsage},
		{"parse", nil, apperrors.Parsef("bad record"), apperrors.ExitParse},
		{"comparability", nil, apperrors.Newf(apperrors.ErrComparability, "keys differ"), apperrors.ExitComparability},
		{"unknown flag", []string{"--nope"}, nil, apperrors.ExitUsage},
		{"bad flag value", []string{"--cut", "ten"}, nil, apperrors.ExitUsage},
		{"extra args", []string{"extra"}, nil, apperrors.ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, stderr := testCmd(func(*cobra.Command, []string) error { return tt.err })
			cmd.SetArgs(append([]string{}, tt.args...))
			assert.Equal(t, tt.want, Execute(cmd))
			if tt.want == apperrors.ExitUsage {
				assert.Contains(t, stderr.String(), "Usage:")
			}
		})
	}
}

func TestOptionsLoadAppliesFlags(t *testing.T) {
	var cfg *config.Config
	var opts *Options
	var cmd *cobra.Command
	cmd, opts, _ = testCmd(func(*cobra.Command, []string) error {
		var err error
		cfg, err = opts.Load()
		return err
	})
	cmd.SetArgs([]string{
		"--log-level", "error",
		"--queries-file", "q.txt",
		"--judgments-file", "j.txt",
		"--out-dir", "out",
	})
	require.Equal(t, apperrors.ExitOK, Execute(cmd))
	require.NotNil(t, cfg)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "q.txt", cfg.Eval.QueriesPath)
	assert.Equal(t, "j.txt", cfg.Eval.JudgmentsPath)
	assert.Equal(t, "out", cfg.Eval.OutputDir)
}

func TestOptionsLoadBadConfigIsUsageError(t *testing.T) {
	opts := Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := opts.Load()
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
}

func buildIndex(t *testing.T, analyzer string) string {
	t.Helper()
	cfg := config.Default().Index
	cfg.DataDir = t.TempDir()
	a, err := tokenizer.New(analyzer, "")
	require.NoError(t, err)
	e, err := indexer.Create(cfg, indexer.ModeCreate, a)
	require.NoError(t, err)
	require.NoError(t, e.IndexDocument("1", "magnetic core memory"))
	require.NoError(t, e.IndexDocument("2", "radio wave propagation"))
	require.NoError(t, e.Close())
	return cfg.DataDir
}

func TestRuntimeOpenIndex(t *testing.T) {
	dir := buildIndex(t, tokenizer.English)
	rt := NewRuntime("npl-test", config.Default())

	engine, err := rt.OpenIndex(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, engine.Stats().Docs)

	_, err = rt.OpenIndex(dir, tokenizer.Standard)
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))

	require.NoError(t, rt.Close())
}

func TestRuntimeWithoutBackends(t *testing.T) {
	dir := buildIndex(t, tokenizer.Standard)
	rt := NewRuntime("npl-test", config.Default())
	defer rt.Close()

	engine, err := rt.OpenIndex(dir, tokenizer.Standard)
	require.NoError(t, err)
	ranker, err := rt.Ranker(context.Background(), engine)
	require.NoError(t, err)
	assert.IsType(t, &executor.Executor{}, ranker)

	reporters, err := rt.Reporters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reporters)
}

func TestRuntimeCloseWritesMetricsTextfile(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "npleval.prom")

	rt := NewRuntime("npl-test", cfg)
	rt.Metrics.QueriesEvaluated.WithLabelValues("search").Add(3)
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `npleval_queries_evaluated_total{phase="search"} 3`)
	assert.Contains(t, string(data), `npleval_run_duration_seconds{command="npl-test"}`)
}

type memCache struct {
	mu     sync.Mutex
	data   map[string]string
	closed bool
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memCache) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, strings.TrimSuffix(pattern, "*")) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memCache) Close() error {
	m.closed = true
	return nil
}

func cachedRuntime(store *memCache) (*Runtime, *bytes.Buffer) {
	cfg := config.Default()
	cfg.Redis.Enabled = true
	rt := NewRuntime("npl-test", cfg)
	rt.dialCache = func(context.Context, config.RedisConfig) (cacheStore, error) { return store, nil }
	var logs bytes.Buffer
	rt.logger = slog.New(slog.NewTextHandler(&logs, nil))
	return rt, &logs
}

func TestRuntimeRankingCacheLogsStatsOnClose(t *testing.T) {
	dir := buildIndex(t, tokenizer.Standard)
	store := newMemCache()
	rt, logs := cachedRuntime(store)

	engine, err := rt.OpenIndex(dir, "")
	require.NoError(t, err)
	ranker, err := rt.Ranker(context.Background(), engine)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := ranker.Rank(context.Background(), "magnetic memory", eval.Model{Family: eval.FamilyDefault}, 10)
		require.NoError(t, err)
	}
	assert.Len(t, store.data, 1)

	require.NoError(t, rt.Close())
	assert.True(t, store.closed)
	assert.Contains(t, logs.String(), "ranking cache stats")
	assert.Contains(t, logs.String(), "hits=2 misses=1")
}

func TestRuntimeInvalidateRankings(t *testing.T) {
	dir := buildIndex(t, tokenizer.Standard)
	store := newMemCache()
	rt, _ := cachedRuntime(store)

	engine, err := rt.OpenIndex(dir, "")
	require.NoError(t, err)
	ranker, err := rt.Ranker(context.Background(), engine)
	require.NoError(t, err)
	_, err = ranker.Rank(context.Background(), "radio", eval.Model{Family: eval.FamilyDefault}, 10)
	require.NoError(t, err)
	store.data["npleval:rank:other-index:abc"] = "[]"

	require.NoError(t, rt.InvalidateRankings(context.Background(), engine.Manifest().ID))
	assert.Equal(t, map[string]string{"npleval:rank:other-index:abc": "[]"}, store.data)
	require.NoError(t, rt.Close())
}

func TestRuntimeInvalidateRankingsWithoutCache(t *testing.T) {
	rt := NewRuntime("npl-test", config.Default())
	rt.dialCache = func(context.Context, config.RedisConfig) (cacheStore, error) {
		t.Fatal("dialed a disabled cache")
		return nil, nil
	}
	require.NoError(t, rt.InvalidateRankings(context.Background(), "idx"))
	require.NoError(t, rt.Close())
}

func TestRuntimeArchiveDisabled(t *testing.T) {
	rt := NewRuntime("npl-test", config.Default())
	defer rt.Close()
	_, err := rt.Archive(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
}
