package memory_test

import (
	"context"
	"testing"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/store/memory"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

func newStore() *memory.Store {
	return memory.New(idgen.NewGenerator())
}

func TestCreateAndLoadThread(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	created, err := store.CreateThread(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !idgen.ValidateIDFormat(created.ID, "thread") {
		t.Errorf("thread id %q has unexpected format", created.ID)
	}

	loaded, err := store.LoadThread(ctx, created.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != created.ID || loaded.Status != thread.StatusActive {
		t.Errorf("loaded thread mismatch: %+v", loaded)
	}
}

func TestLoadThreadNotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	_, err := store.LoadThread(ctx, "thread_missing")
	if !platformerrors.IsNotFound(err) {
		t.Errorf("want NOT_FOUND, got %v", err)
	}
}

func TestSaveThreadLeavesItemsUntouched(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	created, _ := store.CreateThread(ctx)
	item := thread.NewUserMessage("msg_1", created.ID, "hello", nil, nil)
	if err := store.AddThreadItem(ctx, created.ID, item); err != nil {
		t.Fatalf("add item: %v", err)
	}

	title := "renamed"
	created.Title = &title
	if err := store.SaveThread(ctx, created); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadThread(ctx, created.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Title == nil || *loaded.Title != title {
		t.Errorf("title not persisted: %+v", loaded)
	}

	page, err := store.LoadThreadItems(ctx, created.ID, thread.ListQuery{})
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(page.Data) != 1 {
		t.Errorf("metadata upsert must not touch items, got %d", len(page.Data))
	}
}

func TestDeleteThreadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	created, _ := store.CreateThread(ctx)
	if err := store.DeleteThread(ctx, created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.DeleteThread(ctx, created.ID); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if err := store.DeleteThread(ctx, "thread_never_existed"); err != nil {
		t.Errorf("deleting an unknown thread should be a no-op, got %v", err)
	}
}

func TestLoadThreadItemsUnknownThreadYieldsEmptyPage(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	page, err := store.LoadThreadItems(ctx, "thread_missing", thread.ListQuery{})
	if err != nil {
		t.Fatalf("want empty page, got error %v", err)
	}
	if len(page.Data) != 0 || page.HasMore {
		t.Errorf("want empty page, got %+v", page)
	}
}

func TestSaveItemUpsertsInPlace(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	created, _ := store.CreateThread(ctx)

	first := thread.NewUserMessage("msg_1", created.ID, "one", nil, nil)
	assistant := thread.NewAssistantMessage("msg_2", created.ID)
	last := thread.NewUserMessage("msg_3", created.ID, "three", nil, nil)
	for _, item := range []thread.Item{first, assistant, last} {
		if err := store.AddThreadItem(ctx, created.ID, item); err != nil {
			t.Fatalf("add %s: %v", item.ID, err)
		}
	}

	assistant.SetOutputText("streamed result")
	if err := store.SaveItem(ctx, created.ID, assistant); err != nil {
		t.Fatalf("save item: %v", err)
	}

	page, err := store.LoadThreadItems(ctx, created.ID, thread.ListQuery{})
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(page.Data) != 3 {
		t.Fatalf("upsert must replace, not append; got %d items", len(page.Data))
	}
	if page.Data[1].ID != "msg_2" {
		t.Errorf("upsert changed position: middle item is %s", page.Data[1].ID)
	}
	if page.Data[1].Text() != "streamed result" {
		t.Errorf("upsert did not persist content: %q", page.Data[1].Text())
	}
}

func TestSaveItemAppendsWhenNew(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	created, _ := store.CreateThread(ctx)

	item := thread.NewAssistantMessage("msg_1", created.ID)
	item.SetOutputText("fresh")
	if err := store.SaveItem(ctx, created.ID, item); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadItem(ctx, created.ID, "msg_1")
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	if loaded.Text() != "fresh" {
		t.Errorf("text = %q", loaded.Text())
	}
}

func TestDeleteThreadItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	created, _ := store.CreateThread(ctx)

	item := thread.NewUserMessage("msg_1", created.ID, "hi", nil, nil)
	_ = store.AddThreadItem(ctx, created.ID, item)

	if err := store.DeleteThreadItem(ctx, created.ID, "msg_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteThreadItem(ctx, created.ID, "msg_1"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}

	_, err := store.LoadItem(ctx, created.ID, "msg_1")
	if !platformerrors.IsNotFound(err) {
		t.Errorf("want NOT_FOUND after delete, got %v", err)
	}
}

func TestLoadFullThreadFiltersHiddenContext(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	created, _ := store.CreateThread(ctx)

	_ = store.AddThreadItem(ctx, created.ID, thread.NewUserMessage("msg_1", created.ID, "question", nil, nil))
	_ = store.AddThreadItem(ctx, created.ID, thread.NewHiddenContext("hctx_1", created.ID, "secret"))
	_ = store.AddThreadItem(ctx, created.ID, thread.NewAssistantMessage("msg_2", created.ID))

	full, err := store.LoadFullThread(ctx, created.ID)
	if err != nil {
		t.Fatalf("load full: %v", err)
	}
	if len(full.Items.Data) != 2 {
		t.Fatalf("visible items = %d, want 2", len(full.Items.Data))
	}
	for _, item := range full.Items.Data {
		if item.Type == thread.ItemTypeHiddenContext {
			t.Errorf("hidden context leaked into full thread view")
		}
	}

	// The raw item list still includes hidden context for the agent side.
	raw, err := store.LoadThreadItems(ctx, created.ID, thread.ListQuery{})
	if err != nil {
		t.Fatalf("load raw items: %v", err)
	}
	if len(raw.Data) != 3 {
		t.Errorf("raw items = %d, want 3", len(raw.Data))
	}
}

func TestLoadThreadsPagesAcrossCreation(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	var ids []string
	for i := 0; i < 5; i++ {
		created, err := store.CreateThread(ctx)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, created.ID)
	}

	page, err := store.LoadThreads(ctx, thread.ListQuery{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 3 || !page.HasMore {
		t.Fatalf("first page = %d items has_more=%v", len(page.Data), page.HasMore)
	}

	rest, err := store.LoadThreads(ctx, thread.ListQuery{Limit: 3, After: *page.After})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Data) != 2 || rest.HasMore {
		t.Errorf("second page = %d items has_more=%v", len(rest.Data), rest.HasMore)
	}

	seen := make(map[string]bool)
	for _, tr := range append(page.Data, rest.Data...) {
		seen[tr.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("thread %s missing from paged walk", id)
		}
	}
}
