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

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerMark/config"
	appmodel "github.com/sifan077/PowerMark/internal/app/model"
	apprepository "github.com/sifan077/PowerMark/internal/app/repository"
	appserver "github.com/sifan077/PowerMark/internal/app/server"
	appservice "github.com/sifan077/PowerMark/internal/app/service"
	"github.com/sifan077/PowerMark/internal/app/thumbnail"
	"github.com/sifan077/PowerMark/internal/http/middleware"
	"github.com/sifan077/PowerMark/internal/http/util"
	"github.com/sifan077/PowerMark/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerMark/internal/infra/nats"
	infraPostgres "github.com/sifan077/PowerMark/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/PowerMark/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerMark/internal/infra/redis"
	"github.com/sifan077/PowerMark/internal/metadata"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.ConfigFromEnv())
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Server.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}

	log.Info("Configuration loaded",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_addr", infraRedis.Addr(cfg.Redis)),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("image_proxy", cfg.Thumbnail.ProxyPath),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Category{}, &appmodel.Bookmark{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	natsConn, publisher, warmer := startEvents(cfg, log)
	if natsConn != nil {
		defer func() { _ = natsConn.Drain() }()
	}
	if warmer != nil {
		defer warmer.Stop()
	}

	promServer := infraPrometheus.NewServer(cfg.Prometheus)
	go func() {
		log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
		}
	}()
	defer func() {
		if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Failed to close Prometheus server", zap.Error(err))
		}
	}()

	resolverOpts := metadata.Options{
		Timeout:      cfg.Resolver.Timeout,
		RetryMax:     cfg.Resolver.RetryMax,
		UserAgent:    cfg.Resolver.UserAgent,
		MaxBodyBytes: cfg.Resolver.MaxBodyBytes,
		BlockPrivate: cfg.Resolver.BlockPrivate,
		Logger:       log.Named("metadata"),
	}
	if cache := metadata.NewRedisCache(redisClient, cfg.Resolver.CacheTTL, log); cache != nil {
		resolverOpts.Cache = cache
	}

	var events appservice.EventPublisher
	if publisher != nil {
		events = publisher
	}
	bookmarks := appservice.NewBookmarkService(appservice.BookmarkDeps{
		Repo:       apprepository.NewBookmarkRepository(gormDB),
		Thumbnails: thumbnail.NewBuilder(cfg.Thumbnail.ProxyPath),
		Publisher:  events,
		Logger:     log,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Postgres:  pool,
		Redis:     redisClient,
		Bookmarks: bookmarks,
		Resolver:  metadata.NewResolver(resolverOpts),
		Sessions:  util.NewSessionSigner([]byte(cfg.Server.SessionSecret), cfg.Server.SessionTTL),
		RateLimit: middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		},
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting HTTP server", zap.String("addr", addr))
	if err := server.Listen(addr); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}

// startEvents connects to NATS when enabled. Events are optional: any failure
// is logged and the server runs without them.
func startEvents(cfg *config.Config, log *zap.Logger) (*nats.Conn, *appservice.BookmarkPublisher, *appservice.ThumbWarmer) {
	conn, js, err := infraNATS.Connect(cfg.NATS, log)
	if err != nil {
		if errors.Is(err, infraNATS.ErrDisabled) {
			log.Info("NATS disabled, bookmark events off")
		} else {
			log.Warn("Failed to connect to NATS, bookmark events off", zap.Error(err))
		}
		return nil, nil, nil
	}

	if err := appservice.EnsureBookmarkStream(js); err != nil {
		log.Warn("Failed to ensure bookmark stream", zap.Error(err))
		return conn, nil, nil
	}
	log.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))

	publisher := appservice.NewBookmarkPublisher(js)
	if cfg.Thumbnail.ProxyBaseURL == "" {
		return conn, publisher, nil
	}

	warmer := appservice.NewThumbWarmer(js, log.Named("thumb-warmer"), cfg.Thumbnail.ProxyBaseURL)
	if err := warmer.Start(); err != nil {
		log.Warn("Failed to start thumbnail warmer", zap.Error(err))
		return conn, publisher, nil
	}
	return conn, publisher, warmer
}
