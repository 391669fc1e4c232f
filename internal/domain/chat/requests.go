package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

// RequestType enumerates the closed set of request variants.
type RequestType string

const (
	RequestThreadsList           RequestType = "threads.list"
	RequestThreadsCreate         RequestType = "threads.create"
	RequestThreadsGetByID        RequestType = "threads.get_by_id"
	RequestThreadsAddUserMessage RequestType = "threads.add_user_message"
	RequestThreadsUpdate         RequestType = "threads.update"
	RequestThreadsDelete         RequestType = "threads.delete"
	RequestItemsList             RequestType = "items.list"
)

// IsStreaming reports whether the variant answers with an event stream.
func (t RequestType) IsStreaming() bool {
	return t == RequestThreadsCreate || t == RequestThreadsAddUserMessage
}

var knownRequestTypes = map[RequestType]struct{}{
	RequestThreadsList:           {},
	RequestThreadsCreate:         {},
	RequestThreadsGetByID:        {},
	RequestThreadsAddUserMessage: {},
	RequestThreadsUpdate:         {},
	RequestThreadsDelete:         {},
	RequestItemsList:             {},
}

// Request is the inbound envelope: a type tag plus variant-specific params,
// decoded lazily per variant.
type Request struct {
	Type   RequestType     `json:"type"`
	Params json.RawMessage `json:"params"`
}

// ParseRequest decodes and validates the request envelope. Malformed
// requests are rejected before any store mutation occurs.
func ParseRequest(ctx context.Context, payload []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"malformed request body", err)
	}
	if _, ok := knownRequestTypes[req.Type]; !ok {
		return nil, platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unknown request type: %q", req.Type), nil)
	}
	return &req, nil
}

func (r *Request) decodeParams(ctx context.Context, dst any) error {
	if len(r.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Params, dst); err != nil {
		return platformerrors.New(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("invalid params for %s", r.Type), err)
	}
	return nil
}

// InputContentPart is one chunk of user-supplied message content. Only
// plain text parts are accepted today.
type InputContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserMessageInput is the payload from which a user message item is built.
type UserMessageInput struct {
	Content          []InputContentPart `json:"content"`
	QuotedText       *string            `json:"quoted_text,omitempty"`
	InferenceOptions map[string]any     `json:"inference_options,omitempty"`
}

// Text concatenates the input's text parts.
func (in UserMessageInput) Text() string {
	var out string
	for _, part := range in.Content {
		out += part.Text
	}
	return out
}

// ThreadsListParams pages over threads.
type ThreadsListParams struct {
	Limit int    `json:"limit"`
	After string `json:"after"`
	Order string `json:"order"`
}

// ThreadsCreateParams starts a thread, optionally seeded with a first user
// message.
type ThreadsCreateParams struct {
	Input *UserMessageInput `json:"input,omitempty"`
}

// ThreadsGetByIDParams fetches one hydrated thread.
type ThreadsGetByIDParams struct {
	ThreadID string `json:"thread_id"`
}

// ThreadsAddUserMessageParams appends a user message to an existing thread.
type ThreadsAddUserMessageParams struct {
	ThreadID string           `json:"thread_id"`
	Input    UserMessageInput `json:"input"`
}

// ThreadsUpdateParams patches thread metadata.
type ThreadsUpdateParams struct {
	ThreadID string         `json:"thread_id"`
	Title    *string        `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ThreadsDeleteParams removes a thread and its items.
type ThreadsDeleteParams struct {
	ThreadID string `json:"thread_id"`
}

// ItemsListParams pages over one thread's visible items.
type ItemsListParams struct {
	ThreadID string `json:"thread_id"`
	Limit    int    `json:"limit"`
	After    string `json:"after"`
	Order    string `json:"order"`
}
