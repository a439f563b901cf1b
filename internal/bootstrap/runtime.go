// Package bootstrap builds the shared runtime used by the server and the CLIs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/observability"
	"yatube/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ServiceName string
	// Tracing is only started for long-running processes.
	Tracing bool
}

// Runtime holds connections shared by a process. Redis is nil when it is
// not configured or not reachable.
type Runtime struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	FollowRepo repository.FollowRepository

	closers []func(context.Context) error
}

// InitRuntime configures logging and tracing, connects to the database and
// Redis, and selects the follow store named by GRAPH_BACKEND.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.Logger = middleware.NewLogger(cfg.Env)
	observability.SetLogger(middleware.Logger)

	rt := &Runtime{Config: cfg}

	if opts.Tracing {
		name := opts.ServiceName
		if name == "" {
			name = "yatube-api"
		}
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    name,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.closers = append(rt.closers, shutdown)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("redis unavailable, using in-process page cache", "error", err)
		} else {
			rt.Redis = client
			rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		}
	}

	follows, err := rt.followRepository(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.FollowRepo = follows

	return rt, nil
}

func (rt *Runtime) followRepository(ctx context.Context) (repository.FollowRepository, error) {
	if rt.Config.GraphBackend != config.GraphBackendNeo4j {
		return repository.NewFollowRepository(rt.DB), nil
	}

	executor, err := repository.NewNeo4jExecutor(rt.Config.Neo4jURI, rt.Config.Neo4jUser,
		rt.Config.Neo4jPassword, rt.Config.Neo4jDatabase)
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	rt.closers = append(rt.closers, executor.Close)

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := executor.Verify(verifyCtx); err != nil {
		return nil, fmt.Errorf("neo4j unreachable: %w", err)
	}
	if err := repository.EnsureNeo4jSchema(verifyCtx, executor); err != nil {
		return nil, fmt.Errorf("neo4j schema: %w", err)
	}
	middleware.Logger.Info("social graph stored in neo4j", "uri", rt.Config.Neo4jURI)
	return repository.NewNeo4jFollowRepository(executor), nil
}

// PageCache builds the index cache over Redis when available, else in process memory.
func (rt *Runtime) PageCache() *cache.PageCache {
	ttl := time.Duration(rt.Config.IndexCacheTTLSeconds) * time.Second
	if rt.Redis != nil {
		return cache.NewPageCache(cache.NewRedisStore(rt.Redis), ttl)
	}
	return cache.NewPageCache(cache.NewMemoryStore(), ttl)
}

// Close releases everything InitRuntime opened, newest first.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
