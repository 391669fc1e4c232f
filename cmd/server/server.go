package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chatkit-dev/chat-api/internal/config"
	"github.com/chatkit-dev/chat-api/internal/domain/chat"
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/agent"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/auth"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/logger"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/observability"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/store/memory"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/store/postgres"
	"github.com/chatkit-dev/chat-api/internal/interfaces/httpserver"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
	"github.com/chatkit-dev/chat-api/internal/worker"
)

// @title ChatKit Chat API
// @version 1.0
// @description Thread and item storage with a single-endpoint streaming chat protocol.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	ids := idgen.NewGenerator()

	store, err := newStore(ctx, cfg, ids, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize store")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	agentClient := agent.NewClient(cfg.AgentAPIURL, cfg.AgentAPIKey)
	responder := agent.NewResponder(agentClient, store, ids, cfg.AgentModel, cfg.HistoryLimit, log)

	chatService := chat.NewService(store, responder, ids, chat.Config{
		ResponseTimeout: cfg.ResponseTimeout,
	}, log)

	sweeper := worker.NewSweeper(store, worker.Config{
		ThreadTTL:     cfg.ThreadTTL,
		SweepInterval: cfg.SweepInterval,
	}, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	httpServer := httpserver.New(cfg, log, chatService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newStore(ctx context.Context, cfg *config.Config, ids *idgen.Generator, log zerolog.Logger) (thread.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		}, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db, ids), nil
	default:
		return memory.New(ids), nil
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
