package thread_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

func TestUserMessageJSONRoundTrip(t *testing.T) {
	quoted := "earlier remark"
	item := thread.NewUserMessage("msg_1", "thread_1", "hello there", &quoted, map[string]any{"model": "fast"})

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded thread.Item
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Type != thread.ItemTypeUserMessage {
		t.Errorf("type = %q, want user_message", decoded.Type)
	}
	if decoded.Text() != "hello there" {
		t.Errorf("text = %q, want %q", decoded.Text(), "hello there")
	}
	if decoded.QuotedText == nil || *decoded.QuotedText != quoted {
		t.Errorf("quoted_text = %v, want %q", decoded.QuotedText, quoted)
	}
	if decoded.Object != "thread.item" {
		t.Errorf("object = %q, want thread.item", decoded.Object)
	}
}

func TestHiddenContextSerializesContentAsString(t *testing.T) {
	item := thread.NewHiddenContext("hctx_1", "thread_1", "system knows this")

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal wire form: %v", err)
	}
	content, ok := wire["content"].(string)
	if !ok {
		t.Fatalf("content should be a string, got %T", wire["content"])
	}
	if content != "system knows this" {
		t.Errorf("content = %q, want %q", content, "system knows this")
	}

	var decoded thread.Item
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if decoded.HiddenContent != "system knows this" {
		t.Errorf("hidden content = %q after round trip", decoded.HiddenContent)
	}
	if decoded.Text() != "system knows this" {
		t.Errorf("text = %q, want payload", decoded.Text())
	}
}

func TestOutputTextPartEmitsEmptyAnnotations(t *testing.T) {
	part := thread.ContentPart{Type: thread.ContentPartOutputText, Text: "answer"}

	data, err := json.Marshal(part)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"annotations":[]`) {
		t.Errorf("output_text part should carry annotations: [], got %s", data)
	}

	input := thread.ContentPart{Type: thread.ContentPartInputText, Text: "question"}
	data, err = json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal input part: %v", err)
	}
	if strings.Contains(string(data), "annotations") {
		t.Errorf("input_text part should not carry annotations, got %s", data)
	}
}

func TestSetOutputTextPreservesAnnotations(t *testing.T) {
	item := thread.NewAssistantMessage("msg_2", "thread_1")
	item.Content = []thread.ContentPart{{
		Type:        thread.ContentPartOutputText,
		Text:        "partial",
		Annotations: []thread.Annotation{{Type: "url_citation", URL: "https://example.com"}},
	}}

	item.SetOutputText("complete")

	if got := item.Text(); got != "complete" {
		t.Errorf("text = %q, want complete", got)
	}
	if len(item.Content) != 1 {
		t.Fatalf("content parts = %d, want 1", len(item.Content))
	}
	if len(item.Content[0].Annotations) != 1 {
		t.Errorf("annotations dropped by SetOutputText")
	}
}

func TestNewThreadDefaults(t *testing.T) {
	tr := thread.NewThread("thread_9")
	if tr.Status != thread.StatusActive {
		t.Errorf("status = %q, want active", tr.Status)
	}
	if tr.Object != "thread" {
		t.Errorf("object = %q, want thread", tr.Object)
	}
	if tr.Metadata == nil {
		t.Error("metadata should be initialized")
	}
	if tr.Title != nil {
		t.Errorf("title should start unset, got %q", *tr.Title)
	}
}
