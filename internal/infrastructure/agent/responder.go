package agent

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/chat"
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

const defaultHistoryLimit = 100

// Responder answers user messages by replaying thread history to the
// completions API and streaming the reply back as assistant message events.
type Responder struct {
	client       *Client
	store        thread.Store
	ids          *idgen.Generator
	model        string
	historyLimit int
	log          zerolog.Logger
}

var _ chat.Responder = (*Responder)(nil)

// NewResponder wires a Responder against client. historyLimit caps how many
// prior items are replayed upstream; zero applies the default.
func NewResponder(client *Client, store thread.Store, ids *idgen.Generator, model string, historyLimit int, log zerolog.Logger) *Responder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Responder{
		client:       client,
		store:        store,
		ids:          ids,
		model:        model,
		historyLimit: historyLimit,
		log:          log.With().Str("component", "agent-responder").Logger(),
	}
}

// Respond streams one assistant message. A thread created without input
// gets no reply.
func (r *Responder) Respond(ctx context.Context, t *thread.Thread, userItem *thread.Item, emit chat.Emitter) error {
	if userItem == nil {
		return nil
	}

	messages, err := r.history(ctx, t.ID)
	if err != nil {
		return err
	}

	stream, err := r.client.CreateChatCompletionStream(ctx, ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return platformerrors.New(ctx, platformerrors.LayerAgent, platformerrors.ErrorTypeStream,
			"agent request failed", err)
	}
	defer stream.Close()

	item := thread.NewAssistantMessage(r.ids.Next("msg"), t.ID)
	if _, err := chat.StreamAssistantMessage(ctx, item, &completionRun{stream: stream}, emit); err != nil {
		return err
	}

	r.titleThread(ctx, t, emit)
	return nil
}

const titlePrompt = "Summarize the conversation in at most six words for use as a thread title. Reply with the title only."

// titleThread names an untitled thread once its first exchange completes.
// Titling is best effort: failures are logged and the stream ends normally
// without a thread.updated frame.
func (r *Responder) titleThread(ctx context.Context, t *thread.Thread, emit chat.Emitter) {
	if t.Title != nil {
		return
	}

	messages, err := r.history(ctx, t.ID)
	if err != nil {
		r.log.Warn().Err(err).Str("thread_id", t.ID).Msg("title history load failed")
		return
	}
	messages = append(messages, ChatMessage{Role: "system", Content: titlePrompt})

	resp, err := r.client.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("thread_id", t.ID).Msg("title generation failed")
		return
	}
	if len(resp.Choices) == 0 {
		return
	}
	title := strings.TrimSpace(resp.Choices[0].Message.Content)
	if title == "" {
		return
	}

	full, err := r.store.LoadFullThread(ctx, t.ID)
	if err != nil {
		r.log.Warn().Err(err).Str("thread_id", t.ID).Msg("title thread reload failed")
		return
	}
	full.Title = &title
	if err := emit(chat.ThreadUpdatedEvent(full)); err != nil {
		r.log.Warn().Err(err).Str("thread_id", t.ID).Msg("title update not delivered")
	}
}

// history replays the thread's items as completion messages. Hidden context
// items are part of the agent-facing history even though clients never see
// them; they ride along as system messages.
func (r *Responder) history(ctx context.Context, threadID string) ([]ChatMessage, error) {
	page, err := r.store.LoadThreadItems(ctx, threadID, thread.ListQuery{Limit: r.historyLimit})
	if err != nil {
		return nil, err
	}

	messages := make([]ChatMessage, 0, len(page.Data))
	for idx := range page.Data {
		item := &page.Data[idx]
		text := item.Text()
		if text == "" {
			continue
		}
		switch item.Type {
		case thread.ItemTypeUserMessage:
			messages = append(messages, ChatMessage{Role: "user", Content: text})
		case thread.ItemTypeAssistantMessage:
			messages = append(messages, ChatMessage{Role: "assistant", Content: text})
		case thread.ItemTypeHiddenContext:
			messages = append(messages, ChatMessage{Role: "system", Content: text})
		}
	}
	return messages, nil
}

// completionRun adapts a completions Stream to the streaming adapter's
// fragment contract, accumulating output as it goes.
type completionRun struct {
	stream      Stream
	accumulated string
}

func (r *completionRun) Recv() (string, error) {
	for {
		delta, err := r.stream.Recv()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if len(delta.Choices) == 0 {
			continue
		}
		fragment := delta.Choices[0].Delta.Content
		r.accumulated += fragment
		return fragment, nil
	}
}

func (r *completionRun) FinalOutput() string {
	return r.accumulated
}
