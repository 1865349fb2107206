package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/config"
	"github.com/rknm-cell/mise/backend/internal/handler"
	"github.com/rknm-cell/mise/backend/internal/service/ai"
	"github.com/rknm-cell/mise/backend/internal/service/assistant"
	"github.com/rknm-cell/mise/backend/internal/service/cooking"
	"github.com/rknm-cell/mise/backend/internal/service/session"
	"github.com/rknm-cell/mise/backend/internal/service/timer"
	"github.com/rknm-cell/mise/backend/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	timerRepo, closeTimers, err := newTimerRepository(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize timer storage", zap.Error(err))
	}
	defer closeTimers()
	timers := timer.NewRegistry(timerRepo, logger.Named("timer"))

	sessionStore, closeSessions, err := newSessionStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize session storage", zap.Error(err))
	}
	defer closeSessions()
	sessions := session.NewManager(sessionStore, logger.Named("session"))
	sessions.Load(ctx)

	deps := handler.Dependencies{
		Timers:        timers,
		Sessions:      sessions,
		ExposeDetails: !cfg.Server.IsProduction(),
		Log:           logger,
	}

	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, logger.Named("ai"))
		if err != nil {
			logger.Warn("failed to initialize AI service, continuing without the assistant", zap.Error(err))
		} else {
			limits := ai.Limits{MaxOutputTokens: cfg.AI.MaxOutputTokens, Temperature: cfg.AI.Temperature}
			deps.Cooking = cooking.NewService(aiService, limits, logger.Named("cooking"))
			deps.Assistant = assistant.New(sessions, timers, deps.Cooking, assistant.Config{
				WakePhrase:          cfg.Voice.WakePhrase,
				ConfidenceThreshold: cfg.Voice.ConfidenceThreshold,
			}, logger.Named("assistant"))
			logger.Info("AI service initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Warn("ark credentials not configured, cooking assistant disabled")
	}

	router := handler.NewRouter(deps)

	startServer(ctx, cfg.Server, router, logger)
}

func newTimerRepository(cfg config.StorageConfig, logger *zap.Logger) (timer.Repository, func(), error) {
	if cfg.TimerBackend == config.TimerBackendRedis {
		repo, err := timer.NewRedisRepository(cfg.RedisURL, logger.Named("timer.redis"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("timers stored in redis")
		return repo, func() { _ = repo.Close() }, nil
	}
	return timer.NewMemoryRepository(), func() {}, nil
}

func newSessionStore(cfg config.StorageConfig, logger *zap.Logger) (session.Store, func(), error) {
	if cfg.SessionDBDir == "memory" {
		logger.Warn("voice sessions will not survive restarts")
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.NewBadgerStore(session.BadgerOptions{
		Dir: cfg.SessionDBDir,
		Log: logger.Named("badger"),
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("voice sessions stored in badger", zap.String("dir", cfg.SessionDBDir))
	return store, func() { _ = store.Close() }, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Mise backend listening", zap.String("addr", addr), zap.String("env", serverCfg.Env))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
