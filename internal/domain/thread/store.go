package thread

import (
	"context"
	"fmt"

	"github.com/chatkit-dev/chat-api/internal/utils/functional"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

// Store persists threads and their ordered item lists. Implementations must
// preserve item insertion order independently of timestamps; the pagination
// cursor depends on position among equal created_at values.
//
// Failure semantics: lookups by primary key fail with NOT_FOUND, list and
// delete operations are forgiving (empty results / no-ops) so callers racing
// a list against a delete need no coordination.
type Store interface {
	// CreateThread allocates a fresh thread with an empty item list.
	CreateThread(ctx context.Context) (*Thread, error)
	// SaveThread upserts thread metadata by id. The item list of an
	// existing thread is untouched.
	SaveThread(ctx context.Context, t *Thread) error
	// LoadThread returns metadata only; items are fetched separately.
	LoadThread(ctx context.Context, threadID string) (*Thread, error)
	// LoadThreads pages over all thread metadata ordered by created_at.
	LoadThreads(ctx context.Context, q ListQuery) (Page[*Thread], error)
	// DeleteThread removes the thread and all its items. Idempotent.
	DeleteThread(ctx context.Context, threadID string) error

	// AddThreadItem appends item to the thread's item list.
	AddThreadItem(ctx context.Context, threadID string, item Item) error
	// SaveItem upserts by item id within the thread, replacing in place
	// (position preserved) or appending. Used to commit streamed content.
	SaveItem(ctx context.Context, threadID string, item Item) error
	// LoadItem returns one item; NOT_FOUND if thread or item is absent.
	LoadItem(ctx context.Context, threadID, itemID string) (Item, error)
	// DeleteThreadItem removes one item. Idempotent no-op when absent.
	DeleteThreadItem(ctx context.Context, threadID, itemID string) error
	// LoadThreadItems pages over the thread's items. A missing thread
	// yields an empty page, not an error.
	LoadThreadItems(ctx context.Context, threadID string, q ListQuery) (Page[Item], error)

	// LoadFullThread composes LoadThread with the item list, filtering
	// hidden context items from the returned view.
	LoadFullThread(ctx context.Context, threadID string) (*FullThread, error)
}

// ErrThreadNotFound builds the canonical NOT_FOUND error for a thread id.
func ErrThreadNotFound(ctx context.Context, threadID string) error {
	return platformerrors.New(ctx, platformerrors.LayerStore, platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("thread not found: %s", threadID), nil)
}

// ErrItemNotFound builds the canonical NOT_FOUND error for an item id.
func ErrItemNotFound(ctx context.Context, threadID, itemID string) error {
	return platformerrors.New(ctx, platformerrors.LayerStore, platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("item not found: %s in thread %s", itemID, threadID), nil)
}

// VisibleItems filters hidden context items from a list, preserving order.
func VisibleItems(items []Item) []Item {
	return functional.Filter(items, func(item Item) bool {
		return item.Type != ItemTypeHiddenContext
	})
}
