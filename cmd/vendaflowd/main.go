// vendaflowd is the local data daemon: it keeps the offline cache and
// mutation queue on disk, talks to the hosted backend when reachable, and
// serves the UI process over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/auth"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/handler"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/membership"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/netstatus"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/sequence"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/service"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/syncengine"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/config"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/telemetry"
)

const probeInterval = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vendaflowd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       logLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	local, err := openLocalStore(cfg)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer local.Close()

	store, err := openRemoteStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open remote store: %w", err)
	}

	backend := auth.NewMemoryBackend()

	monitor := netstatus.NewMonitor(true)
	go monitor.Watch(ctx, func(ctx context.Context) bool {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		_, err := store.Query(probeCtx, remote.CollectionMemberships, remote.Filter{"id": "probe"})
		return err == nil || !remote.IsRetryable(err)
	}, probeInterval)

	c := cache.New(local)
	q := queue.New(local)
	seq := sequence.New(store, cfg.Sequence.Prefix, cfg.Sequence.PadWidth)

	resolver := membership.NewResolver(backend, store, membership.Config{
		MaxAttempts:    cfg.Membership.MaxAttempts,
		RetryDelay:     cfg.Membership.RetryDelay,
		OverrideTTL:    cfg.Membership.OverrideTTL,
		SessionTimeout: cfg.Auth.SessionTimeout,
	}, log)

	engine, err := syncengine.New(q, monitor, syncengine.Config{MaxAttempts: cfg.Sync.MaxAttempts}, log)
	if err != nil {
		return fmt.Errorf("init sync engine: %w", err)
	}

	data := service.NewData(store, c, q, monitor, seq, resolver, log)
	data.RegisterReplayers(engine)

	// Drain whatever a previous run left in the queue: the monitor starts
	// online, so no transition fires at startup.
	engine.Start(ctx)

	// Sign-out wipes the whole local store, cache and queue alike.
	backend.OnAuthStateChange(func(ev auth.Event) {
		switch ev.Kind {
		case auth.EventSignedIn:
			go func() {
				if _, err := resolver.Resolve(context.Background()); err != nil {
					log.Warn("membership resolution failed after sign-in", zap.Error(err))
				}
			}()
		case auth.EventSignedOut:
			if err := c.Clear(context.Background()); err != nil {
				log.Error("local store wipe failed", zap.Error(err))
			}
		}
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.New(data, engine, resolver, q, log).RegisterRoutes(router, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openLocalStore(cfg *config.Config) (localstore.Store, error) {
	switch cfg.LocalStore.Driver {
	case "memory":
		return localstore.NewMemoryStore(), nil
	case "sqlite":
		return localstore.NewSQLiteStore(cfg.LocalStore.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		return localstore.NewRedisStore(client, cfg.LocalStore.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", cfg.LocalStore.Driver)
	}
}

func openRemoteStore(ctx context.Context, cfg *config.Config) (remote.DataStore, error) {
	if cfg.Database.Host == "" {
		return remote.NewMemoryStore(), nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return remote.NewPostgresStore(pool), nil
}
