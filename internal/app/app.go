// Package app assembles the API from configuration: stores, cache, services
// and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/postboard/internal/auth"
	"github.com/geocoder89/postboard/internal/cache"
	"github.com/geocoder89/postboard/internal/config"
	"github.com/geocoder89/postboard/internal/db"
	apphttp "github.com/geocoder89/postboard/internal/http"
	"github.com/geocoder89/postboard/internal/http/handlers"
	"github.com/geocoder89/postboard/internal/observability"
	"github.com/geocoder89/postboard/internal/repo/memory"
	"github.com/geocoder89/postboard/internal/repo/postgres"
	"github.com/geocoder89/postboard/internal/security"
	"github.com/geocoder89/postboard/internal/service"
)

type App struct {
	Router *gin.Engine
	Prom   *observability.Prom

	closers []func()
}

// New opens the configured backends and wires the router over them.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Prom: observability.NewProm()}
	checks := map[string]handlers.PingFunc{}

	users, posts, err := a.openStores(ctx, cfg, log, checks)
	if err != nil {
		a.Close()
		return nil, err
	}

	cacheStore := a.openCache(cfg, log, checks)
	cachedPosts := cache.NewPostsRepo(posts, cacheStore, cfg.PostsCacheTTL, log).WithObserver(a.Prom)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)

	userService := service.NewUserService(users, hasher, cachedPosts)
	postService := service.NewPostService(cachedPosts)

	a.Router = apphttp.NewRouter(log, apphttp.Deps{
		Users:  userService,
		Posts:  postService,
		Auth:   auth.NewAuthenticator(tokens, users),
		Tokens: tokens,
		Prom:   a.Prom,
		Checks: checks,
	}, apphttp.Config{
		Env:            cfg.Env,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]handlers.PingFunc) (service.UserStore, cache.PostStore, error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		s := memory.NewStore()
		return s.Users(), s.Posts(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	checks["postgres"] = pool.Ping

	return postgres.NewUsersRepo(pool, a.Prom), postgres.NewPostsRepo(pool, a.Prom), nil
}

// openCache prefers Redis; an unset REDIS_ADDR keeps the cache in process.
func (a *App) openCache(cfg config.Config, log *slog.Logger, checks map[string]handlers.PingFunc) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() {
		if err := r.Close(); err != nil {
			log.Warn("redis close failed", "err", err)
		}
	})
	checks["redis"] = r.Ping

	return r
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
