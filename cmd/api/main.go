package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pairchat/internal/adapter/api"
	"pairchat/internal/adapter/api/handler"
	apimiddleware "pairchat/internal/adapter/api/middleware"
	"pairchat/internal/adapter/api/router"
	"pairchat/internal/adapter/repository"
	domainrepo "pairchat/internal/domain/repository"
	"pairchat/internal/domain/service"
	"pairchat/internal/infrastructure/database"
	"pairchat/internal/infrastructure/events"
	"pairchat/internal/infrastructure/metrics"
	"pairchat/internal/infrastructure/presence"
	"pairchat/internal/infrastructure/ratelimit"
	"pairchat/internal/infrastructure/token"
	"pairchat/internal/infrastructure/websocket"
	"pairchat/internal/usecase"
	"pairchat/pkg/config"
	"pairchat/pkg/logger"
)

type stores struct {
	users         domainrepo.UserRepository
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Setup(cfg.IsDevelopment())

	if err := run(cfg); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config) error {
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.HealthCheck{}
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	repos, err := openStorage(ctx, cfg, checks, &cleanup)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	registry, err := openPresence(ctx, cfg, checks, &cleanup)
	if err != nil {
		return fmt.Errorf("initialize presence: %w", err)
	}

	wsManager := websocket.NewManager(registry, repos.conversations)
	wsManager.Start(ctx)

	notifier := events.NewFanout().Add("websocket", wsManager)
	if cfg.NatsURL != "" {
		publisher, err := events.NewPublisher(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		cleanup = append(cleanup, publisher.Close)
		notifier.Add("nats", publisher)
	}

	tokens := token.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL())

	authUseCase := usecase.NewAuthUseCase(repos.users, tokens)
	userUseCase := usecase.NewUserUseCase(repos.users, registry)
	messageUseCase := usecase.NewMessageUseCase(repos.conversations, repos.messages, repos.users, registry, notifier)
	conversationUseCase := usecase.NewConversationUseCase(repos.conversations, repos.messages, repos.users, registry)

	handler.Setup(authUseCase, userUseCase, messageUseCase, conversationUseCase)

	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: {PerSecond: cfg.MessageRatePerSecond, Burst: cfg.MessageRateBurst},
		ratelimit.ActionAuth:        {PerSecond: 0.2, Burst: 5},
	}, ratelimit.Policy{PerSecond: 10, Burst: 50})
	limiter.StartCleanupRoutine(ctx)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.ErrorHandler

	authMiddleware := apimiddleware.NewAuthMiddleware(tokens)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware)
	healthHandler := handler.NewHealthHandler(checks)

	router.Setup(e, authMiddleware, limiter, wsHandler, healthHandler)

	go func() {
		logger.Info("Starting server on port %s (storage=%s, presence=%s)", cfg.ServerPort, cfg.StorageDriver, cfg.PresenceDriver)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck, cleanup *[]func()) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, pool.Close)
		if err := database.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		checks["postgres"] = pool.Ping
		return &stores{
			users:         repository.NewPostgresUserRepository(pool),
			conversations: repository.NewPostgresConversationRepository(pool),
			messages:      repository.NewPostgresMessageRepository(pool),
		}, nil

	case config.StorageFirestore:
		client, err := database.NewFirestoreClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, func() { client.Close() })
		db := repository.NewFirestoreDatabase(client, "")
		return &stores{
			users:         repository.NewFirestoreUserRepository(db),
			conversations: repository.NewFirestoreConversationRepository(db),
			messages:      repository.NewFirestoreMessageRepository(db),
		}, nil

	case config.StorageMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		db := repository.NewMemoryDatabase()
		return &stores{
			users:         repository.NewMemoryUserRepository(db),
			conversations: repository.NewMemoryConversationRepository(db),
			messages:      repository.NewMemoryMessageRepository(db),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openPresence(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck, cleanup *[]func()) (service.PresenceRegistry, error) {
	switch cfg.PresenceDriver {
	case config.PresenceRedis:
		client, err := presence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, func() { client.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return presence.NewRedisRegistry(client, "pairchat", cfg.PresenceTTL), nil

	case config.PresenceMemory:
		return presence.NewMemoryRegistry(), nil
	}
	return nil, fmt.Errorf("unknown presence driver %q", cfg.PresenceDriver)
}
