package chat

import (
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

// CompleteResponse is the fully materialized form of a drained event
// stream, for integrations without SSE support (SMS/WhatsApp bridges). It
// carries the final assistant text instead of incremental frames.
type CompleteResponse struct {
	Text      string `json:"text"`
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Drain consumes the stream to completion and extracts the last assistant
// message. Streams are closed after their terminal event, so Drain always
// returns.
func Drain(stream <-chan Event) CompleteResponse {
	var out CompleteResponse
	for ev := range stream {
		switch ev.Type {
		case EventThreadCreated:
			if ev.Thread != nil {
				out.ThreadID = ev.Thread.ID
			}
		case EventItemDone:
			if ev.Item == nil {
				continue
			}
			if out.ThreadID == "" {
				out.ThreadID = ev.Item.ThreadID
			}
			if ev.Item.Type == thread.ItemTypeAssistantMessage {
				out.MessageID = ev.Item.ID
				out.Text = ev.Item.Text()
			}
		case EventError:
			if ev.Error != nil {
				out.Error = ev.Error.Message
				if out.Error == "" {
					out.Error = ev.Error.Code
				}
			}
		}
	}
	return out
}
