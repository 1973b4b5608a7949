package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"linkly/internal/auth"
	"linkly/internal/config"
	"linkly/internal/database"
	"linkly/internal/events"
	"linkly/internal/handlers"
	"linkly/internal/logging"
	"linkly/internal/metadata"
	"linkly/internal/middleware"
	"linkly/internal/repository"
	"linkly/internal/repository/memory"
	"linkly/internal/services"
)

type stores struct {
	users     services.UserStore
	tokens    services.RefreshTokenStore
	bookmarks services.BookmarkStore
	health    handlers.HealthCheck
}

func main() {
	config.Load()
	cfg := config.AppEnv

	logger := logging.New(cfg.Env, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	st, client, err := openStores(cfg, logger)
	if err != nil {
		logger.Error("mongo connection failed", "error", err)
		os.Exit(1)
	}

	rdb := openRedis(cfg.Redis, logger)
	publisher := openPublisher(cfg.Events, logger)

	var extractor metadata.Extractor = metadata.NewScraper(cfg.MetadataTimeout, logger)
	extractor = metadata.NewCachedExtractor(extractor, rdb, cfg.MetadataCacheTTL, logger)

	authSvc := services.NewAuthService(st.users, st.tokens, st.bookmarks, auth.NewCodec(cfg.JWTSecret), services.AuthOptions{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Publisher:  publisher,
		Logger:     logger,
	})
	bookmarkSvc := services.NewBookmarkService(st.bookmarks, extractor, services.BookmarkOptions{
		Publisher: publisher,
		Logger:    logger,
	})

	r := handlers.NewRouter(handlers.RouterDeps{
		Auth:      authSvc,
		Bookmarks: bookmarkSvc,
		Health:    st.health,
		RateLimit: middleware.RateLimit(cfg.RateLimit, rdb),
		Logger:    logger,
		ClientURL: cfg.ClientURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("closing event publisher", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("closing redis", "error", err)
		}
	}
	if client != nil {
		if err := client.Disconnect(shutdownCtx); err != nil {
			logger.Warn("closing mongo", "error", err)
		}
	}
}

// openStores connects to MongoDB when MONGO_URI is set and falls back to
// process-local stores otherwise.
func openStores(cfg config.Config, logger *slog.Logger) (stores, *mongo.Client, error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory stores")
		return stores{
			users:     memory.NewUserStore(),
			tokens:    memory.NewRefreshTokenStore(),
			bookmarks: memory.NewBookmarkStore(),
		}, nil, nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return stores{}, nil, err
	}

	db := client.Database(cfg.DBName)
	logger.Info("mongo connected", "db", db.Name())

	if err := database.EnsureIndexes(db); err != nil {
		logger.Warn("index setup incomplete", "error", err)
	}

	return stores{
		users:     repository.NewUserRepo(db),
		tokens:    repository.NewRefreshTokenRepo(db),
		bookmarks: repository.NewBookmarkRepo(db),
		health: func(ctx context.Context) error {
			return database.Ping(ctx, client, 2*time.Second)
		},
	}, client, nil
}

// openRedis returns nil when Redis is not configured or not reachable; the
// metadata cache and rate limiter both treat a nil client as disabled.
func openRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching and rate limiting disabled", "addr", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	logger.Info("redis connected", "addr", cfg.Addr)
	return rdb
}

func openPublisher(cfg config.EventsConfig, logger *slog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.NopPublisher{}
	}

	p, err := events.DialAMQP(cfg.URL, cfg.Exchange)
	if err != nil {
		logger.Warn("event broker unavailable, events disabled", "error", err)
		return events.NopPublisher{}
	}

	logger.Info("event publisher ready", "exchange", cfg.Exchange)
	return p
}
