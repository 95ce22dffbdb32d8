package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"story-engine/internal/config"
	"story-engine/internal/content"
	"story-engine/internal/engine"
	"story-engine/internal/handler"
	"story-engine/internal/messaging"
	"story-engine/internal/middleware"
	"story-engine/internal/repository"
	"story-engine/internal/service"
	"story-engine/pkg/logger"
	"story-engine/pkg/migration"
)

func main() {
	_ = godotenv.Load()
	log.Println("Starting Story Engine...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level: cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	contentRepo, err := content.NewEmbeddedRepository(content.DefaultPackPath, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load content pack", zap.Error(err))
	}

	store, closeStore, err := setupStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up persistent store", zap.Error(err))
	}
	defer closeStore()

	publisher := setupPublisher(cfg, zapLogger)
	defer publisher.Close()

	progressService := service.NewProgressService(store, contentRepo, zapLogger)
	settingsService := service.NewSettingsService(store, zapLogger)
	saveService := service.NewSaveService(store, zapLogger)
	playbackService := service.NewPlaybackService(
		engine.NewManager(zapLogger), contentRepo, progressService, settingsService, publisher, zapLogger)

	storyHandler := handler.NewStoryHandler(
		playbackService, progressService, saveService, settingsService,
		contentRepo, zapLogger, cfg.JWTSecret)

	e := echo.New()
	e.Use(middleware.EchoZapLogger(zapLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	storyHandler.RegisterRoutes(e)

	log.Printf("Story engine listening on port %s", cfg.Port)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Failed to start HTTP server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received, starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Failed to shut down echo gracefully: ", err)
	}

	log.Println("Story Engine stopped")
}

// setupStore builds the configured KV backend and returns it with its
// cleanup function.
func setupStore(cfg *config.Config, zapLogger *zap.Logger) (repository.KVStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		zapLogger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
		return repository.NewRedisKVStore(client, zapLogger), func() { client.Close() }, nil

	case config.StoreBackendPostgres:
		pool, err := setupDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		migrator := migration.NewMigrator(migration.Config{
			MigrationsPath: repository.MigrationsPath,
			MigrationsFS:   repository.MigrationsFS,
		}, pool)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrator.Up(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		zapLogger.Info("Connected to PostgreSQL")
		return repository.NewPgKVStore(pool, zapLogger), pool.Close, nil

	case config.StoreBackendMemory:
		zapLogger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryKVStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// setupDatabase initializes the PostgreSQL connection pool.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed): %w", err)
	}
	return pool, nil
}

// setupPublisher connects to RabbitMQ when configured, with retries; events
// are dropped otherwise.
func setupPublisher(cfg *config.Config, zapLogger *zap.Logger) messaging.EventPublisher {
	if cfg.RabbitMQURL == "" {
		zapLogger.Info("RabbitMQ not configured, event publishing disabled")
		return messaging.NewNoopPublisher()
	}

	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.ClientUpdatesQueueName, zapLogger)
		if err == nil {
			zapLogger.Info("Connected to RabbitMQ", zap.String("queue", cfg.ClientUpdatesQueueName))
			return publisher
		}
		zapLogger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	zapLogger.Error("Giving up on RabbitMQ, event publishing disabled")
	return messaging.NewNoopPublisher()
}
