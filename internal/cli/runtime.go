package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/archive"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/events"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/redis"
)

type cacheStore interface {
	cache.Store
	Close() error
}

// Runtime owns the collectors and the optional backends of one command run.
type Runtime struct {
	Config  *config.Config
	Metrics *metrics.Metrics

	command   string
	started   time.Time
	closers   []func() error
	logger    *slog.Logger
	dialCache func(ctx context.Context, cfg config.RedisConfig) (cacheStore, error)
}

func NewRuntime(command string, cfg *config.Config) *Runtime {
	return &Runtime{
		Config:    cfg,
		Metrics:   metrics.New(),
		command:   command,
		started:   time.Now(),
		logger:    slog.Default().With("component", "runtime", "command", command),
		dialCache: dialRedis,
	}
}

func dialRedis(ctx context.Context, cfg config.RedisConfig) (cacheStore, error) {
	client, err := redis.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// OpenIndex opens the index in dir read-only. A non-empty analyzer must
// match the one recorded in the manifest.
func (r *Runtime) OpenIndex(dir, analyzer string) (*indexer.Engine, error) {
	engine, err := indexer.Open(dir, indexer.WithMetrics(r.Metrics))
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, engine.Close)
	if analyzer != "" && analyzer != engine.Manifest().Analyzer {
		return nil, apperrors.Usagef("index %s was built with analyzer %q, not %q",
			dir, engine.Manifest().Analyzer, analyzer)
	}
	stats := engine.Stats()
	r.logger.Info("index opened",
		"dir", dir,
		"analyzer", engine.Manifest().Analyzer,
		"docs", stats.Docs,
		"tokens", stats.Tokens,
	)
	return engine, nil
}

// Ranker returns the ranker over engine, behind the Redis ranking cache
// when it is enabled.
func (r *Runtime) Ranker(ctx context.Context, engine *indexer.Engine) (eval.Ranker, error) {
	var ranker eval.Ranker = executor.New(engine)
	if !r.Config.Redis.Enabled {
		return ranker, nil
	}
	store, err := r.dialCache(ctx, r.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("connecting ranking cache: %w", err)
	}
	r.closers = append(r.closers, store.Close)
	m := engine.Manifest()
	version := strconv.FormatInt(m.UpdatedAt.UnixNano(), 10)
	rc := cache.New(ranker, store, m.ID, version, r.Config.Redis.CacheTTL, r.Metrics)
	r.closers = append(r.closers, func() error {
		hits, misses := rc.Stats()
		r.logger.Info("ranking cache stats", "index_id", m.ID, "hits", hits, "misses", misses)
		return nil
	})
	r.logger.Info("ranking cache enabled", "addr", r.Config.Redis.Addr, "ttl", r.Config.Redis.CacheTTL)
	return rc, nil
}

// InvalidateRankings drops the cached rankings of an index that was just
// rewritten. It does nothing when the ranking cache is disabled.
func (r *Runtime) InvalidateRankings(ctx context.Context, indexID string) error {
	if !r.Config.Redis.Enabled {
		return nil
	}
	store, err := r.dialCache(ctx, r.Config.Redis)
	if err != nil {
		return fmt.Errorf("connecting ranking cache: %w", err)
	}
	r.closers = append(r.closers, store.Close)
	_, err = cache.Invalidate(ctx, store, indexID)
	return err
}

// Archive connects to the run archive. It is a usage error to ask for it
// while postgres is disabled.
func (r *Runtime) Archive(ctx context.Context) (*archive.Store, error) {
	if !r.Config.Postgres.Enabled {
		return nil, apperrors.Usagef("the run archive is disabled (set postgres.enabled)")
	}
	db, err := postgres.New(ctx, r.Config.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting run archive: %w", err)
	}
	r.closers = append(r.closers, db.Close)
	store := archive.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("run archive enabled", "host", r.Config.Postgres.Host, "database", r.Config.Postgres.Database)
	return store, nil
}

// Reporters returns the archive and event reporters that are enabled.
func (r *Runtime) Reporters(ctx context.Context) ([]sweep.Reporter, error) {
	var reporters []sweep.Reporter
	if r.Config.Postgres.Enabled {
		store, err := r.Archive(ctx)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, store)
	}
	if r.Config.Kafka.Enabled {
		producer := kafka.NewProducer(r.Config.Kafka, r.Config.Kafka.Topics.EvalRuns)
		r.closers = append(r.closers, producer.Close)
		reporters = append(reporters, events.NewAnnouncer(producer))
		r.logger.Info("run events enabled", "topic", r.Config.Kafka.Topics.EvalRuns)
	}
	return reporters, nil
}

// Close releases the backends in reverse order of acquisition and writes
// the metrics textfile when enabled.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	r.Metrics.RunDurationSeconds.WithLabelValues(r.command).Set(time.Since(r.started).Seconds())
	if r.Config.Metrics.Enabled {
		if err := r.Metrics.WriteTextfile(r.Config.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		} else {
			r.logger.Debug("metrics textfile written", "path", r.Config.Metrics.Textfile)
		}
	}
	return errors.Join(errs...)
}
