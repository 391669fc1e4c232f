//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/config"
	"github.com/chatkit-dev/chat-api/internal/domain/chat"
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/agent"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/auth"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/logger"
	"github.com/chatkit-dev/chat-api/internal/interfaces/httpserver"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
)

var chatSet = wire.NewSet(
	idgen.NewGenerator,
	newThreadStore,
	newAgentClient,
	newResponder,
	wire.Bind(new(chat.Responder), new(*agent.Responder)),
	newChatService,
)

// BuildApplication demonstrates how to assemble the service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newAuthValidator,
		chatSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newThreadStore(ctx context.Context, cfg *config.Config, ids *idgen.Generator, log zerolog.Logger) (thread.Store, error) {
	return newStore(ctx, cfg, ids, log)
}

func newAgentClient(cfg *config.Config) *agent.Client {
	return agent.NewClient(cfg.AgentAPIURL, cfg.AgentAPIKey)
}

func newResponder(cfg *config.Config, client *agent.Client, store thread.Store, ids *idgen.Generator, log zerolog.Logger) *agent.Responder {
	return agent.NewResponder(client, store, ids, cfg.AgentModel, cfg.HistoryLimit, log)
}

func newChatService(cfg *config.Config, store thread.Store, responder chat.Responder, ids *idgen.Generator, log zerolog.Logger) chat.Service {
	return chat.NewService(store, responder, ids, chat.Config{
		ResponseTimeout: cfg.ResponseTimeout,
	}, log)
}
