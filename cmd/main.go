package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"supermercado/ordercore/internal/config"
	"supermercado/ordercore/internal/handler"
	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/internal/service"
	"supermercado/ordercore/pkg/breaker"
	jwtpkg "supermercado/ordercore/pkg/jwt"
	"supermercado/ordercore/pkg/lock"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Connect to the product catalog (read-only)
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 5. Initialize repositories and leaf primitives
	catalogRepo := repository.NewPGCatalogRepository(db, cfg.Catalog.ProductsTable, logger)
	locker := lock.New(stateStore)
	circuit := breaker.New(stateStore, logger,
		breaker.WithThreshold(cfg.Circuit.Threshold),
		breaker.WithWindow(cfg.Circuit.Window),
		breaker.WithCooldown(cfg.Circuit.Cooldown),
	)

	// 6. Initialize services
	suggestionService := service.NewSuggestionService(stateStore, logger, service.DefaultSuggestionsTTL)

	translations := config.LoadTermTranslations(cfg.Catalog.TermTranslationsPath)
	if len(translations) > 0 {
		logger.Info("term translations loaded", zap.Int("entries", len(translations)))
	}
	searchService := service.NewSearchService(catalogRepo, suggestionService, logger, translations)

	sessionService := service.NewSessionService(stateStore, logger, service.SessionConfig{
		BuildingTTL:  cfg.Session.BuildingTTL,
		SentTTL:      cfg.Session.SentTTL,
		CompletedTTL: cfg.Session.CompletedTTL,
	})

	orderClient := service.NewOrderAPIClient(service.OrderAPIConfig{
		BaseURL:   cfg.OrderAPI.BaseURL,
		AuthToken: cfg.OrderAPI.AuthToken,
		Timeout:   cfg.OrderAPI.Timeout,
	}, logger)
	orderSyncer := service.NewOrderSyncer(orderClient, circuit, logger)

	cartService := service.NewCartService(stateStore, locker, sessionService, orderSyncer, logger, service.CartConfig{
		LockTTL:  cfg.Cart.LockTTL,
		LockWait: cfg.Cart.LockWait,
		CartTTL:  cfg.Session.BuildingTTL,
	})

	// 7. Service tokens for the agent layer (optional)
	var jwtManager *jwtpkg.Manager
	if cfg.JWT.SigningKey != "" {
		jwtManager = jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
		logger.Info("service-token auth enabled", zap.String("issuer", cfg.JWT.Issuer))
	}

	// 8. Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	cartHandler := handler.NewCartHandler(cartService)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService)
	infraHandler := handler.NewInfraHandler(locker, circuit)

	// 9. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager,
		searchHandler, sessionHandler, cartHandler, suggestionHandler, infraHandler)

	// 10. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 11. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
