package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chatkit-dev/chat-api/internal/domain/chat"
	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

func collectEmitter(events *[]chat.Event) chat.Emitter {
	return func(ev chat.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestStreamAssistantMessageEventOrder(t *testing.T) {
	item := thread.NewAssistantMessage("msg_1", "thread_1")
	run := chat.NewStaticRun([]string{"He", "llo"}, "")

	var events []chat.Event
	final, err := chat.StreamAssistantMessage(context.Background(), item, run, collectEmitter(&events))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	wantTypes := []chat.EventType{
		chat.EventItemAdded,
		chat.EventItemUpdated, // content_part.added
		chat.EventItemUpdated, // delta "He"
		chat.EventItemUpdated, // delta "llo"
		chat.EventItemUpdated, // content_part.done
		chat.EventItemDone,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Type, want)
		}
	}

	if update := events[1].Update; update == nil || update.Type != chat.UpdateContentPartAdded {
		t.Errorf("second event should open a content part, got %+v", events[1].Update)
	}
	if update := events[2].Update; update == nil || update.Delta != "He" {
		t.Errorf("first delta = %+v", events[2].Update)
	}
	if update := events[3].Update; update == nil || update.Delta != "llo" {
		t.Errorf("second delta = %+v", events[3].Update)
	}
	if update := events[4].Update; update == nil || update.Type != chat.UpdateContentPartDone {
		t.Errorf("penultimate event should close the part, got %+v", events[4].Update)
	} else if update.ContentPart == nil || update.ContentPart.Text != "Hello" {
		t.Errorf("closed part should carry accumulated text, got %+v", update.ContentPart)
	}

	done := events[len(events)-1]
	if done.Item == nil || done.Item.Text() != "Hello" {
		t.Errorf("item done should carry accumulated text, got %+v", done.Item)
	}
	if final.Text() != "Hello" {
		t.Errorf("returned item text = %q", final.Text())
	}
}

func TestStreamAssistantMessageZeroDeltaFallsBackToFinalOutput(t *testing.T) {
	item := thread.NewAssistantMessage("msg_1", "thread_1")
	run := chat.NewStaticRun(nil, "Hi")

	var events []chat.Event
	final, err := chat.StreamAssistantMessage(context.Background(), item, run, collectEmitter(&events))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	// No fragments means no added/updated lifecycle, just the done frame.
	if len(events) != 1 || events[0].Type != chat.EventItemDone {
		t.Fatalf("want single item done event, got %+v", events)
	}
	if final.Text() != "Hi" {
		t.Errorf("fallback text = %q, want Hi", final.Text())
	}
}

func TestStreamAssistantMessageSkipsEmptyFragments(t *testing.T) {
	item := thread.NewAssistantMessage("msg_1", "thread_1")
	run := chat.NewStaticRun([]string{"", "Hey", ""}, "")

	var events []chat.Event
	_, err := chat.StreamAssistantMessage(context.Background(), item, run, collectEmitter(&events))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	deltas := 0
	for _, ev := range events {
		if ev.Update != nil && ev.Update.Type == chat.UpdateContentPartTextDelta {
			deltas++
		}
	}
	if deltas != 1 {
		t.Errorf("empty fragments should not produce deltas, got %d", deltas)
	}
}

type failingRun struct {
	fragments []string
	err       error
	pos       int
}

func (r *failingRun) Recv() (string, error) {
	if r.pos < len(r.fragments) {
		fragment := r.fragments[r.pos]
		r.pos++
		return fragment, nil
	}
	return "", r.err
}

func (r *failingRun) FinalOutput() string { return "" }

func TestStreamAssistantMessageUpstreamFailure(t *testing.T) {
	item := thread.NewAssistantMessage("msg_1", "thread_1")
	upstream := errors.New("connection reset")
	run := &failingRun{fragments: []string{"par"}, err: upstream}

	var events []chat.Event
	_, err := chat.StreamAssistantMessage(context.Background(), item, run, collectEmitter(&events))
	if !errors.Is(err, upstream) {
		t.Fatalf("want upstream error returned, got %v", err)
	}

	last := events[len(events)-1]
	if last.Type != chat.EventError {
		t.Fatalf("terminal event = %s, want error", last.Type)
	}
	if last.Error == nil || !last.Error.AllowRetry {
		t.Errorf("stream errors should allow retry, got %+v", last.Error)
	}
	for _, ev := range events {
		if ev.Type == chat.EventItemDone {
			t.Errorf("no item done may follow a failed run")
		}
	}
}

func TestStreamAssistantMessageContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	item := thread.NewAssistantMessage("msg_1", "thread_1")
	run := chat.NewStaticRun([]string{"never"}, "")

	var events []chat.Event
	_, err := chat.StreamAssistantMessage(ctx, item, run, collectEmitter(&events))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("cancelled stream should not emit, got %d events", len(events))
	}
}
