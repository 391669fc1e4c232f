package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

// errTerminalFrameSent marks failures whose terminal error frame has
// already been delivered downstream. The dispatcher must not convert such
// an error into a second frame: the error event ends the stream.
var errTerminalFrameSent = errors.New("terminal error frame sent")

// AgentRun is the upstream side of the streaming adapter: an agent run's
// incremental text output. Recv returns the next fragment, or io.EOF once
// the run completes; FinalOutput is the run's accumulated output and is
// only meaningful after EOF.
type AgentRun interface {
	Recv() (string, error)
	FinalOutput() string
}

// Emitter delivers one protocol event downstream. A non-nil error aborts
// the producing loop; the consumer is gone.
type Emitter func(Event) error

// StreamAssistantMessage drains run and emits the lifecycle events for one
// assistant message: item added and content part added on the first
// fragment, a text delta per fragment, then content part done and item done
// carrying the accumulated text. A zero-delta run falls back to the run's
// final output so a degenerate upstream still yields a non-empty message.
//
// The returned item carries the final content. On upstream failure a
// terminal error event is emitted, no further events follow for the item,
// and the error is returned wrapped in errTerminalFrameSent so the caller
// skips persisting the item and does not emit a second error frame.
func StreamAssistantMessage(ctx context.Context, item thread.Item, run AgentRun, emit Emitter) (thread.Item, error) {
	started := false
	var accumulated strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return item, err
		}

		fragment, err := run.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if emitErr := emit(errorEventFor(err)); emitErr != nil {
				return item, emitErr
			}
			return item, fmt.Errorf("%w: %w", errTerminalFrameSent, err)
		}
		if fragment == "" {
			continue
		}

		if !started {
			started = true
			if err := emit(ItemAddedEvent(item)); err != nil {
				return item, err
			}
			if err := emit(ItemUpdatedEvent(item.ID, ContentPartUpdate{
				Type:        UpdateContentPartAdded,
				ContentPart: &thread.ContentPart{Type: thread.ContentPartOutputText},
			})); err != nil {
				return item, err
			}
		}

		accumulated.WriteString(fragment)
		if err := emit(ItemUpdatedEvent(item.ID, ContentPartUpdate{
			Type:  UpdateContentPartTextDelta,
			Delta: fragment,
		})); err != nil {
			return item, err
		}
	}

	text := accumulated.String()
	if text == "" {
		text = run.FinalOutput()
	}
	item.SetOutputText(text)

	if started {
		part := item.Content[0]
		if err := emit(ItemUpdatedEvent(item.ID, ContentPartUpdate{
			Type:        UpdateContentPartDone,
			ContentPart: &part,
		})); err != nil {
			return item, err
		}
	}

	if err := emit(ItemDoneEvent(item)); err != nil {
		return item, err
	}
	return item, nil
}

// runFromFragments is a canned AgentRun used in tests and by responders
// that already hold the full reply.
type runFromFragments struct {
	fragments []string
	final     string
	pos       int
}

// NewStaticRun returns an AgentRun that replays fragments and reports final
// as the run's accumulated output.
func NewStaticRun(fragments []string, final string) AgentRun {
	return &runFromFragments{fragments: fragments, final: final}
}

func (r *runFromFragments) Recv() (string, error) {
	if r.pos >= len(r.fragments) {
		return "", io.EOF
	}
	fragment := r.fragments[r.pos]
	r.pos++
	return fragment, nil
}

func (r *runFromFragments) FinalOutput() string {
	return r.final
}
