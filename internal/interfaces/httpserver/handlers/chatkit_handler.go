package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/chat"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/metrics"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

// ChatKitHandler exposes the single-endpoint chat protocol: every request
// type arrives as a JSON envelope on one POST route and is either answered
// with a JSON body or an SSE stream, decided by the request type.
type ChatKitHandler struct {
	service chat.Service
	log     zerolog.Logger
}

// NewChatKitHandler constructs the protocol handler.
func NewChatKitHandler(service chat.Service, log zerolog.Logger) *ChatKitHandler {
	return &ChatKitHandler{
		service: service,
		log:     log.With().Str("component", "chatkit-handler").Logger(),
	}
}

// Process handles POST /chatkit.
func (h *ChatKitHandler) Process(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.writeError(c, platformerrors.New(c.Request.Context(), platformerrors.LayerHandler,
			platformerrors.ErrorTypeValidation, "unreadable request body", err))
		metrics.RecordRequest("unknown", "error", time.Since(start).Seconds())
		return
	}

	requestType := peekRequestType(body)
	result, err := h.service.Process(c.Request.Context(), body)
	if err != nil {
		h.writeError(c, err)
		metrics.RecordRequest(requestType, "error", time.Since(start).Seconds())
		return
	}

	if result.IsStream() {
		h.writeStream(c, result.Stream)
	} else {
		c.JSON(http.StatusOK, result.JSON)
	}
	metrics.RecordRequest(requestType, "ok", time.Since(start).Seconds())
}

// Complete handles POST /chatkit/complete: the same protocol drained to a
// single JSON body for clients without SSE support.
func (h *ChatKitHandler) Complete(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.writeError(c, platformerrors.New(c.Request.Context(), platformerrors.LayerHandler,
			platformerrors.ErrorTypeValidation, "unreadable request body", err))
		metrics.RecordRequest("unknown", "error", time.Since(start).Seconds())
		return
	}

	requestType := peekRequestType(body)
	result, err := h.service.Process(c.Request.Context(), body)
	if err != nil {
		h.writeError(c, err)
		metrics.RecordRequest(requestType, "error", time.Since(start).Seconds())
		return
	}

	if !result.IsStream() {
		c.JSON(http.StatusOK, result.JSON)
		metrics.RecordRequest(requestType, "ok", time.Since(start).Seconds())
		return
	}

	c.JSON(http.StatusOK, chat.Drain(result.Stream))
	metrics.RecordRequest(requestType, "ok", time.Since(start).Seconds())
}

// writeStream frames events as data-only SSE: one "data: <json>" block per
// event, no event name line. Events that fail to serialize are dropped
// rather than corrupting the stream.
func (h *ChatKitHandler) writeStream(c *gin.Context, stream <-chan chat.Event) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.writeError(c, platformerrors.New(c.Request.Context(), platformerrors.LayerHandler,
			platformerrors.ErrorTypeInternal, "streaming unsupported by connection", nil))
		for range stream {
			// Drain so the producer can finish.
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	for ev := range stream {
		data, err := json.Marshal(ev)
		if err != nil {
			h.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("event serialization failed")
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *ChatKitHandler) writeError(c *gin.Context, err error) {
	errorType := platformerrors.TypeOf(err)
	status := platformerrors.ErrorTypeToHTTPStatus(errorType)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	} else {
		h.log.Warn().Err(err).Msg("request rejected")
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"type":    string(errorType),
			"message": err.Error(),
		},
	})
}

// peekRequestType extracts the envelope type for metrics without running
// full validation.
func peekRequestType(body []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Type == "" {
		return "unknown"
	}
	return envelope.Type
}
