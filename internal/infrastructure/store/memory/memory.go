// Package memory implements the thread store on process-local maps. It is
// the default backend for local development and the reference for store
// semantics: the postgres backend mirrors its behavior.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/metrics"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
)

// threadState holds one thread's metadata and its insertion-ordered items.
type threadState struct {
	meta  *thread.Thread
	items []thread.Item
}

// Store is an in-memory thread.Store guarded by a single mutex. Operations
// are short map/slice manipulations, so coarse locking is not a bottleneck.
type Store struct {
	mu      sync.Mutex
	threads map[string]*threadState
	// order keeps thread ids in creation order; pagination ties on
	// created_at break by position, so map iteration order is not enough.
	order []string
	ids   *idgen.Generator
}

var _ thread.Store = (*Store)(nil)

// New returns an empty in-memory store allocating thread ids from ids.
func New(ids *idgen.Generator) *Store {
	return &Store{
		threads: make(map[string]*threadState),
		ids:     ids,
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOp(op, time.Since(start).Seconds())
}

func (s *Store) CreateThread(ctx context.Context) (*thread.Thread, error) {
	defer observe("create_thread", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	t := thread.NewThread(s.ids.Next("thread"))
	s.threads[t.ID] = &threadState{meta: t}
	s.order = append(s.order, t.ID)
	return cloneThread(t), nil
}

func (s *Store) SaveThread(ctx context.Context, t *thread.Thread) error {
	defer observe("save_thread", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.threads[t.ID]; ok {
		state.meta = cloneThread(t)
		return nil
	}
	s.threads[t.ID] = &threadState{meta: cloneThread(t)}
	s.order = append(s.order, t.ID)
	return nil
}

func (s *Store) LoadThread(ctx context.Context, threadID string) (*thread.Thread, error) {
	defer observe("load_thread", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return nil, thread.ErrThreadNotFound(ctx, threadID)
	}
	return cloneThread(state.meta), nil
}

func (s *Store) LoadThreads(ctx context.Context, q thread.ListQuery) (thread.Page[*thread.Thread], error) {
	defer observe("load_threads", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*thread.Thread, 0, len(s.threads))
	for _, id := range s.order {
		all = append(all, cloneThread(s.threads[id].meta))
	}
	page := thread.Paginate(all,
		func(t *thread.Thread) string { return t.ID },
		func(t *thread.Thread) time.Time { return t.CreatedAt },
		q)
	return page, nil
}

func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	defer observe("delete_thread", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[threadID]; ok {
		delete(s.threads, threadID)
		for idx, id := range s.order {
			if id == threadID {
				s.order = append(s.order[:idx], s.order[idx+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *Store) AddThreadItem(ctx context.Context, threadID string, item thread.Item) error {
	defer observe("add_item", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return thread.ErrThreadNotFound(ctx, threadID)
	}
	state.items = append(state.items, item)
	return nil
}

func (s *Store) SaveItem(ctx context.Context, threadID string, item thread.Item) error {
	defer observe("save_item", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return thread.ErrThreadNotFound(ctx, threadID)
	}
	for idx := range state.items {
		if state.items[idx].ID == item.ID {
			state.items[idx] = item
			return nil
		}
	}
	state.items = append(state.items, item)
	return nil
}

func (s *Store) LoadItem(ctx context.Context, threadID, itemID string) (thread.Item, error) {
	defer observe("load_item", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return thread.Item{}, thread.ErrThreadNotFound(ctx, threadID)
	}
	for idx := range state.items {
		if state.items[idx].ID == itemID {
			return state.items[idx], nil
		}
	}
	return thread.Item{}, thread.ErrItemNotFound(ctx, threadID, itemID)
}

func (s *Store) DeleteThreadItem(ctx context.Context, threadID, itemID string) error {
	defer observe("delete_item", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return nil
	}
	for idx := range state.items {
		if state.items[idx].ID == itemID {
			state.items = append(state.items[:idx], state.items[idx+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) LoadThreadItems(ctx context.Context, threadID string, q thread.ListQuery) (thread.Page[thread.Item], error) {
	defer observe("load_items", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return thread.EmptyPage[thread.Item](), nil
	}
	page := thread.Paginate(state.items,
		func(i thread.Item) string { return i.ID },
		func(i thread.Item) time.Time { return i.CreatedAt },
		q)
	return page, nil
}

func (s *Store) LoadFullThread(ctx context.Context, threadID string) (*thread.FullThread, error) {
	defer observe("load_full_thread", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.threads[threadID]
	if !ok {
		return nil, thread.ErrThreadNotFound(ctx, threadID)
	}
	page := thread.Paginate(thread.VisibleItems(state.items),
		func(i thread.Item) string { return i.ID },
		func(i thread.Item) time.Time { return i.CreatedAt },
		thread.ListQuery{Limit: thread.MaxListLimit})
	return &thread.FullThread{Thread: *cloneThread(state.meta), Items: page}, nil
}

func cloneThread(t *thread.Thread) *thread.Thread {
	out := *t
	if t.Metadata != nil {
		out.Metadata = make(map[string]any, len(t.Metadata))
		for key, value := range t.Metadata {
			out.Metadata[key] = value
		}
	}
	return &out
}
