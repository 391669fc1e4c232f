package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

// threadRecord is the database schema for thread metadata.
type threadRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	Title    *string        `gorm:"type:varchar(256)"`
	Status   thread.Status  `gorm:"type:varchar(20);not null;default:'active'"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}

func (threadRecord) TableName() string { return "threads" }

// threadItemRecord is the database schema for thread items. The
// autoincrement primary key preserves insertion order, which the pagination
// cursor depends on when created_at values tie.
type threadItemRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index:idx_item_thread_created"`

	PublicID       string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	ThreadPublicID string          `gorm:"type:varchar(50);index:idx_item_thread_created;not null"`
	Type           thread.ItemType `gorm:"type:varchar(32);not null"`

	Content          datatypes.JSON `gorm:"type:jsonb"`
	QuotedText       *string        `gorm:"type:text"`
	InferenceOptions datatypes.JSON `gorm:"type:jsonb"`
	HiddenContent    *string        `gorm:"type:text"`
}

func (threadItemRecord) TableName() string { return "thread_items" }

func threadToRecord(t *thread.Thread) (*threadRecord, error) {
	rec := &threadRecord{
		PublicID:  t.ID,
		Title:     t.Title,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	if t.Metadata != nil {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal thread metadata: %w", err)
		}
		rec.Metadata = datatypes.JSON(raw)
	}
	return rec, nil
}

func recordToThread(rec *threadRecord) (*thread.Thread, error) {
	t := &thread.Thread{
		ID:        rec.PublicID,
		Object:    "thread",
		Title:     rec.Title,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
	if len(rec.Metadata) > 0 {
		if err := json.Unmarshal(rec.Metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal thread metadata: %w", err)
		}
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	return t, nil
}

func itemToRecord(threadID string, item thread.Item) (*threadItemRecord, error) {
	rec := &threadItemRecord{
		PublicID:       item.ID,
		ThreadPublicID: threadID,
		Type:           item.Type,
		QuotedText:     item.QuotedText,
		CreatedAt:      item.CreatedAt,
	}
	if item.Type == thread.ItemTypeHiddenContext {
		hidden := item.HiddenContent
		rec.HiddenContent = &hidden
		return rec, nil
	}
	raw, err := json.Marshal(item.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal item content: %w", err)
	}
	rec.Content = datatypes.JSON(raw)
	if item.InferenceOptions != nil {
		opts, err := json.Marshal(item.InferenceOptions)
		if err != nil {
			return nil, fmt.Errorf("marshal inference options: %w", err)
		}
		rec.InferenceOptions = datatypes.JSON(opts)
	}
	return rec, nil
}

func recordToItem(rec *threadItemRecord) (thread.Item, error) {
	item := thread.Item{
		ID:         rec.PublicID,
		Object:     "thread.item",
		ThreadID:   rec.ThreadPublicID,
		Type:       rec.Type,
		QuotedText: rec.QuotedText,
		CreatedAt:  rec.CreatedAt,
	}
	if rec.Type == thread.ItemTypeHiddenContext {
		if rec.HiddenContent != nil {
			item.HiddenContent = *rec.HiddenContent
		}
		return item, nil
	}
	if len(rec.Content) > 0 {
		if err := json.Unmarshal(rec.Content, &item.Content); err != nil {
			return thread.Item{}, fmt.Errorf("unmarshal item content: %w", err)
		}
	}
	if len(rec.InferenceOptions) > 0 {
		if err := json.Unmarshal(rec.InferenceOptions, &item.InferenceOptions); err != nil {
			return thread.Item{}, fmt.Errorf("unmarshal inference options: %w", err)
		}
	}
	return item, nil
}
