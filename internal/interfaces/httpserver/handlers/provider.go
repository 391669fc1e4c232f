package handlers

import (
	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/chat"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	ChatKit *ChatKitHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(chatService chat.Service, log zerolog.Logger) *Provider {
	return &Provider{
		ChatKit: NewChatKitHandler(chatService, log),
	}
}
