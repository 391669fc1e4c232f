// Package chat implements the request dispatch and event streaming protocol
// spoken over the /chatkit endpoint: a small closed set of request variants
// answered with either a one-shot JSON body or an ordered stream of thread
// events suitable for Server-Sent Events framing.
package chat

import (
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

// EventType identifies a protocol event on the wire.
type EventType string

const (
	EventThreadCreated EventType = "thread.created"
	EventThreadUpdated EventType = "thread.updated"
	EventItemAdded     EventType = "thread.item.added"
	EventItemUpdated   EventType = "thread.item.updated"
	EventItemDone      EventType = "thread.item.done"
	EventError         EventType = "error"
)

// UpdateType tags the sub-union carried by thread.item.updated events.
type UpdateType string

const (
	UpdateContentPartAdded     UpdateType = "content_part.added"
	UpdateContentPartTextDelta UpdateType = "content_part.text_delta"
	UpdateContentPartDone      UpdateType = "content_part.done"
)

// ContentPartUpdate is an incremental mutation of one content part.
type ContentPartUpdate struct {
	Type         UpdateType          `json:"type"`
	ContentIndex int                 `json:"content_index"`
	ContentPart  *thread.ContentPart `json:"content_part,omitempty"`
	Delta        string              `json:"delta,omitempty"`
}

// ErrorPayload is the body of a terminal error event.
type ErrorPayload struct {
	Code       string `json:"code"`
	Message    string `json:"message,omitempty"`
	AllowRetry bool   `json:"allow_retry"`
}

// Event is one protocol event. Exactly the fields relevant to Type are set;
// everything else is omitted from the serialized JSON.
type Event struct {
	Type   EventType          `json:"type"`
	Thread *thread.FullThread `json:"thread,omitempty"`
	Item   *thread.Item       `json:"item,omitempty"`
	ItemID string             `json:"item_id,omitempty"`
	Update *ContentPartUpdate `json:"update,omitempty"`
	Error  *ErrorPayload      `json:"error,omitempty"`
}

// ThreadCreatedEvent announces a freshly persisted thread.
func ThreadCreatedEvent(t *thread.FullThread) Event {
	return Event{Type: EventThreadCreated, Thread: t}
}

// ThreadUpdatedEvent announces mutated thread metadata.
func ThreadUpdatedEvent(t *thread.FullThread) Event {
	return Event{Type: EventThreadUpdated, Thread: t}
}

// ItemAddedEvent announces a new item with its initial (possibly empty)
// content.
func ItemAddedEvent(item thread.Item) Event {
	return Event{Type: EventItemAdded, Item: &item}
}

// ItemUpdatedEvent carries an incremental content part mutation.
func ItemUpdatedEvent(itemID string, update ContentPartUpdate) Event {
	return Event{Type: EventItemUpdated, ItemID: itemID, Update: &update}
}

// ItemDoneEvent carries the finished item. It is always the last event
// emitted for that item.
func ItemDoneEvent(item thread.Item) Event {
	return Event{Type: EventItemDone, Item: &item}
}

// ErrorEvent builds a terminal error event.
func ErrorEvent(code, message string, allowRetry bool) Event {
	return Event{Type: EventError, Error: &ErrorPayload{
		Code:       code,
		Message:    message,
		AllowRetry: allowRetry,
	}}
}

// errorEventFor maps an internal error to the terminal error frame shown to
// the client. NOT_FOUND surfaces mid-stream as retryable; everything else is
// a stream error.
func errorEventFor(err error) Event {
	switch platformerrors.TypeOf(err) {
	case platformerrors.ErrorTypeNotFound:
		return ErrorEvent("not_found", err.Error(), true)
	case platformerrors.ErrorTypeValidation:
		return ErrorEvent("invalid_request", err.Error(), false)
	default:
		return ErrorEvent("stream_error", err.Error(), true)
	}
}
