package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/metrics"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/observability"
	"github.com/chatkit-dev/chat-api/internal/utils/functional"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
)

// streamBuffer decouples the producing goroutine from the transport write
// pace without accumulating unbounded state.
const streamBuffer = 16

// Responder is the externally supplied collaborator deciding what the agent
// says. It receives the thread, the latest user item (nil when a thread was
// created without input), and an emitter for its event stream. The core
// consumes only the emitted events; item done events are persisted before
// forwarding and hidden context items are persisted but never forwarded.
type Responder interface {
	Respond(ctx context.Context, t *thread.Thread, userItem *thread.Item, emit Emitter) error
}

// Result is either a one-shot JSON body or an event stream; exactly one of
// the two fields is set. A stream is fully drainable: the channel is closed
// once the final event has been emitted.
type Result struct {
	JSON   any
	Stream <-chan Event
}

// IsStream reports whether the result must be framed as SSE.
func (r *Result) IsStream() bool {
	return r.Stream != nil
}

// Service dispatches protocol requests against the store and responder.
type Service interface {
	Process(ctx context.Context, payload []byte) (*Result, error)
}

// Config tunes dispatcher behavior.
type Config struct {
	// ResponseTimeout bounds one streaming turn. Zero disables the bound.
	ResponseTimeout time.Duration
}

type service struct {
	store     thread.Store
	responder Responder
	ids       *idgen.Generator
	timeout   time.Duration
	log       zerolog.Logger
}

// NewService constructs the dispatcher.
func NewService(store thread.Store, responder Responder, ids *idgen.Generator, cfg Config, log zerolog.Logger) Service {
	return &service{
		store:     store,
		responder: responder,
		ids:       ids,
		timeout:   cfg.ResponseTimeout,
		log:       log.With().Str("component", "chat-service").Logger(),
	}
}

// Process parses the request envelope and routes it. Validation failures are
// rejected before any store mutation occurs.
func (s *service) Process(ctx context.Context, payload []byte) (*Result, error) {
	req, err := ParseRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartDispatchSpan(ctx, string(req.Type))
	defer span.End()

	switch req.Type {
	case RequestThreadsList:
		return s.listThreads(ctx, req)
	case RequestThreadsGetByID:
		return s.getThread(ctx, req)
	case RequestThreadsUpdate:
		return s.updateThread(ctx, req)
	case RequestThreadsDelete:
		return s.deleteThread(ctx, req)
	case RequestItemsList:
		return s.listItems(ctx, req)
	case RequestThreadsCreate:
		return s.createThread(ctx, req)
	case RequestThreadsAddUserMessage:
		return s.addUserMessage(ctx, req)
	}
	// ParseRequest already rejected unknown types.
	return nil, nil
}

// ===============================================
// One-shot variants
// ===============================================

func (s *service) listThreads(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsListParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}

	page, err := s.store.LoadThreads(ctx, thread.ListQuery{
		Limit: params.Limit,
		After: params.After,
		Order: thread.SortOrder(params.Order),
	})
	if err != nil {
		return nil, err
	}

	hydrated := thread.Page[*thread.FullThread]{
		Object:  page.Object,
		Data:    make([]*thread.FullThread, 0, len(page.Data)),
		HasMore: page.HasMore,
		After:   page.After,
	}
	for _, t := range page.Data {
		full, err := s.store.LoadFullThread(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		hydrated.Data = append(hydrated.Data, full)
	}
	return &Result{JSON: hydrated}, nil
}

func (s *service) getThread(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsGetByIDParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}
	full, err := s.store.LoadFullThread(ctx, params.ThreadID)
	if err != nil {
		return nil, err
	}
	return &Result{JSON: full}, nil
}

func (s *service) updateThread(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsUpdateParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}

	t, err := s.store.LoadThread(ctx, params.ThreadID)
	if err != nil {
		return nil, err
	}
	if params.Title != nil {
		t.Title = params.Title
	}
	for key, value := range params.Metadata {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any)
		}
		t.Metadata[key] = value
	}
	if err := s.store.SaveThread(ctx, t); err != nil {
		return nil, err
	}

	full, err := s.store.LoadFullThread(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Result{JSON: full}, nil
}

func (s *service) deleteThread(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsDeleteParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}
	if err := s.store.DeleteThread(ctx, params.ThreadID); err != nil {
		return nil, err
	}
	return &Result{JSON: map[string]any{}}, nil
}

func (s *service) listItems(ctx context.Context, req *Request) (*Result, error) {
	var params ItemsListParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}

	page, err := s.store.LoadThreadItems(ctx, params.ThreadID, thread.ListQuery{
		Limit: params.Limit,
		After: params.After,
		Order: thread.SortOrder(params.Order),
	})
	if err != nil {
		return nil, err
	}
	// The client-facing item list never exposes hidden context items.
	page.Data = thread.VisibleItems(page.Data)
	return &Result{JSON: page}, nil
}

// ===============================================
// Streaming variants
// ===============================================

func (s *service) createThread(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsCreateParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}

	return s.streamRespond(ctx, func(ctx context.Context, emit Emitter) (*thread.Thread, *thread.Item, error) {
		t, err := s.store.CreateThread(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := emit(ThreadCreatedEvent(&thread.FullThread{
			Thread: *t,
			Items:  thread.EmptyPage[thread.Item](),
		})); err != nil {
			return nil, nil, err
		}

		if params.Input == nil {
			return t, nil, nil
		}
		item, err := s.persistUserMessage(ctx, t.ID, *params.Input, emit)
		if err != nil {
			return nil, nil, err
		}
		return t, item, nil
	}), nil
}

func (s *service) addUserMessage(ctx context.Context, req *Request) (*Result, error) {
	var params ThreadsAddUserMessageParams
	if err := req.decodeParams(ctx, &params); err != nil {
		return nil, err
	}

	return s.streamRespond(ctx, func(ctx context.Context, emit Emitter) (*thread.Thread, *thread.Item, error) {
		t, err := s.store.LoadThread(ctx, params.ThreadID)
		if err != nil {
			return nil, nil, err
		}
		item, err := s.persistUserMessage(ctx, t.ID, params.Input, emit)
		if err != nil {
			return nil, nil, err
		}
		return t, item, nil
	}), nil
}

// persistUserMessage stores the user message and closes it immediately on
// the wire: the user message is atomic from the protocol's perspective,
// never "added then later done".
func (s *service) persistUserMessage(ctx context.Context, threadID string, in UserMessageInput, emit Emitter) (*thread.Item, error) {
	item := s.newUserMessage(threadID, in)
	if err := s.store.AddThreadItem(ctx, threadID, item); err != nil {
		return nil, err
	}
	if err := emit(ItemDoneEvent(item)); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *service) newUserMessage(threadID string, in UserMessageInput) thread.Item {
	return thread.Item{
		ID:       s.ids.Next("msg"),
		Object:   "thread.item",
		ThreadID: threadID,
		Type:     thread.ItemTypeUserMessage,
		Content: functional.Map(in.Content, func(part InputContentPart) thread.ContentPart {
			return thread.ContentPart{Type: thread.ContentPartInputText, Text: part.Text}
		}),
		QuotedText:       in.QuotedText,
		InferenceOptions: in.InferenceOptions,
		CreatedAt:        time.Now(),
	}
}

// streamRespond runs setup and the responder in a producer goroutine and
// hands back the consuming side. The channel is closed after the terminal
// event, so a generic consumer can drain it to completion. If the consumer
// disconnects, ctx is cancelled and the producer stops without flushing.
func (s *service) streamRespond(ctx context.Context, setup func(context.Context, Emitter) (*thread.Thread, *thread.Item, error)) *Result {
	events := make(chan Event, streamBuffer)

	go func() {
		defer close(events)

		ctx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		emit := func(ev Event) error {
			select {
			case events <- ev:
				metrics.RecordStreamEvent(string(ev.Type))
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		t, userItem, err := setup(ctx, emit)
		if err != nil {
			s.failStream(ctx, emit, err)
			return
		}

		relay := s.relayEmitter(ctx, t.ID, emit)
		if err := s.responder.Respond(ctx, t, userItem, relay); err != nil {
			s.failStream(ctx, emit, err)
		}
	}()

	return &Result{Stream: events}
}

// relayEmitter decorates emit with the persistence relay: item done events
// are saved before being forwarded, hidden context items are saved but
// swallowed, and thread updates are written through. Already-forwarded
// events are never rolled back on later failure.
func (s *service) relayEmitter(ctx context.Context, threadID string, emit Emitter) Emitter {
	return func(ev Event) error {
		switch ev.Type {
		case EventItemAdded:
			if ev.Item != nil {
				if err := s.store.AddThreadItem(ctx, threadID, *ev.Item); err != nil {
					return err
				}
			}
		case EventItemDone:
			if ev.Item != nil {
				if err := s.store.SaveItem(ctx, threadID, *ev.Item); err != nil {
					return err
				}
				if ev.Item.Type == thread.ItemTypeHiddenContext {
					return nil
				}
			}
		case EventThreadUpdated:
			if ev.Thread != nil {
				t := ev.Thread.Thread
				if err := s.store.SaveThread(ctx, &t); err != nil {
					return err
				}
			}
		}
		return emit(ev)
	}
}

// failStream converts err into the terminal error frame. When the consumer
// is already gone there is nobody left to tell; the failure is logged and
// the stream simply ends. Errors carrying errTerminalFrameSent already put
// their frame on the wire and must not produce another.
func (s *service) failStream(ctx context.Context, emit Emitter, err error) {
	if ctx.Err() != nil {
		s.log.Warn().Err(err).Msg("stream aborted after consumer disconnect")
		return
	}
	s.log.Error().Err(err).Msg("stream failed")
	if errors.Is(err, errTerminalFrameSent) {
		return
	}
	if emitErr := emit(errorEventFor(err)); emitErr != nil {
		s.log.Warn().Err(emitErr).Msg("terminal error frame not delivered")
	}
}
