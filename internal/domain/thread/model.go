package thread

import (
	"encoding/json"
	"time"
)

// ===============================================
// Thread Types
// ===============================================

// Status tracks the lifecycle of a thread.
type Status string

const (
	StatusActive Status = "active"
	StatusLocked Status = "locked"
	StatusClosed Status = "closed"
)

// Thread represents one persisted conversation. Items are stored and
// fetched separately; see Store.
type Thread struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"` // always "thread"
	Title     *string        `json:"title,omitempty"`
	Status    Status         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewThread creates an active thread with the given public ID.
func NewThread(id string) *Thread {
	return &Thread{
		ID:        id,
		Object:    "thread",
		Status:    StatusActive,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// FullThread is the client-facing hydrated view: thread metadata plus the
// visible items. Hidden context items are filtered out before this view is
// built.
type FullThread struct {
	Thread
	Items Page[Item] `json:"items"`
}

// ===============================================
// Item Types
// ===============================================

// ItemType discriminates the item union.
type ItemType string

const (
	ItemTypeUserMessage      ItemType = "user_message"
	ItemTypeAssistantMessage ItemType = "assistant_message"
	ItemTypeHiddenContext    ItemType = "hidden_context"
)

// ContentPartType discriminates message content parts.
type ContentPartType string

const (
	ContentPartInputText  ContentPartType = "input_text"
	ContentPartOutputText ContentPartType = "output_text"
)

// Annotation decorates a span of assistant output text.
type Annotation struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// ContentPart is one ordered chunk of message content. Annotations apply to
// output_text parts only and serialize as an empty list rather than null.
type ContentPart struct {
	Type        ContentPartType `json:"type"`
	Text        string          `json:"text"`
	Annotations []Annotation    `json:"-"`
}

// MarshalJSON emits the annotations list only for output_text parts,
// defaulting it to [] so streaming clients can append in place.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	type alias ContentPart
	if p.Type != ContentPartOutputText {
		return json.Marshal(alias(p))
	}
	annotations := p.Annotations
	if annotations == nil {
		annotations = []Annotation{}
	}
	return json.Marshal(struct {
		alias
		Annotations []Annotation `json:"annotations"`
	}{alias(p), annotations})
}

// UnmarshalJSON restores the annotations list for output_text parts.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	type alias ContentPart
	aux := struct {
		*alias
		Annotations []Annotation `json:"annotations"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Annotations = aux.Annotations
	return nil
}

// Item is one unit of conversation history: a user message, an assistant
// message, or a hidden context marker the UI must never render. The union is
// a single struct discriminated by Type; consumers switch on the tag.
//
// Items are append-only once created, except that an assistant message's
// content mutates in place while its response streams and is frozen once the
// terminal event is emitted.
type Item struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"` // always "thread.item"
	ThreadID  string    `json:"thread_id"`
	Type      ItemType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`

	// user_message and assistant_message
	Content []ContentPart `json:"content,omitempty"`

	// user_message only
	QuotedText       *string        `json:"quoted_text,omitempty"`
	InferenceOptions map[string]any `json:"inference_options,omitempty"`

	// hidden_context only; an opaque payload visible to the agent history
	// but filtered from every client-facing view.
	HiddenContent string `json:"-"`
}

// MarshalJSON renders hidden context items with their string payload under
// "content", matching the wire contract for the other variants' part list.
func (i Item) MarshalJSON() ([]byte, error) {
	type alias Item
	if i.Type != ItemTypeHiddenContext {
		return json.Marshal(alias(i))
	}
	return json.Marshal(struct {
		alias
		Content string `json:"content"`
	}{alias: alias(i), Content: i.HiddenContent})
}

// UnmarshalJSON decodes the content field per variant.
func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	if err := json.Unmarshal(data, (*alias)(i)); err == nil && i.Type != ItemTypeHiddenContext {
		return nil
	}
	aux := struct {
		*alias
		Content string `json:"content"`
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Content = nil
	i.HiddenContent = aux.Content
	return nil
}

// NewUserMessage builds a user message item with a single input_text part.
func NewUserMessage(id, threadID, text string, quotedText *string, inferenceOptions map[string]any) Item {
	return Item{
		ID:       id,
		Object:   "thread.item",
		ThreadID: threadID,
		Type:     ItemTypeUserMessage,
		Content: []ContentPart{
			{Type: ContentPartInputText, Text: text},
		},
		QuotedText:       quotedText,
		InferenceOptions: inferenceOptions,
		CreatedAt:        time.Now(),
	}
}

// NewAssistantMessage builds an assistant message item with empty content.
// Content is filled in while the response streams.
func NewAssistantMessage(id, threadID string) Item {
	return Item{
		ID:        id,
		Object:    "thread.item",
		ThreadID:  threadID,
		Type:      ItemTypeAssistantMessage,
		Content:   []ContentPart{},
		CreatedAt: time.Now(),
	}
}

// NewHiddenContext builds a hidden context item with an opaque payload.
func NewHiddenContext(id, threadID, content string) Item {
	return Item{
		ID:            id,
		Object:        "thread.item",
		ThreadID:      threadID,
		Type:          ItemTypeHiddenContext,
		HiddenContent: content,
		CreatedAt:     time.Now(),
	}
}

// Text concatenates the item's textual content. For hidden context items it
// returns the opaque payload.
func (i *Item) Text() string {
	if i.Type == ItemTypeHiddenContext {
		return i.HiddenContent
	}
	var out string
	for _, part := range i.Content {
		out += part.Text
	}
	return out
}

// SetOutputText replaces the item's content with a single output_text part
// carrying text. Existing annotations on the first part are preserved.
func (i *Item) SetOutputText(text string) {
	var annotations []Annotation
	if len(i.Content) > 0 {
		annotations = i.Content[0].Annotations
	}
	i.Content = []ContentPart{
		{Type: ContentPartOutputText, Text: text, Annotations: annotations},
	}
}
