package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chatkit-dev/chat-api/internal/interfaces/httpserver/handlers"
)

// Provider coordinates all route registrations.
type Provider struct {
	handlers *handlers.Provider
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		handlers: handlerProvider,
	}
}

// Register attaches all protocol routes to the gin engine. The protocol is
// single-endpoint and unversioned: request variants are discriminated by
// the envelope, not by the path.
func (p *Provider) Register(engine *gin.Engine) {
	engine.POST("/chatkit", p.handlers.ChatKit.Process)
	engine.POST("/chatkit/complete", p.handlers.ChatKit.Complete)
}
