package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/metrics"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/observability"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
)

// Store is a PostgreSQL-backed thread.Store.
type Store struct {
	db  *gorm.DB
	ids *idgen.Generator
}

var _ thread.Store = (*Store)(nil)

// NewStore wraps db in a thread.Store allocating thread ids from ids.
func NewStore(db *gorm.DB, ids *idgen.Generator) *Store {
	return &Store{db: db, ids: ids}
}

func dbError(ctx context.Context, msg string, err error) error {
	return platformerrors.New(ctx, platformerrors.LayerStore, platformerrors.ErrorTypeDatabaseError, msg, err)
}

func (s *Store) CreateThread(ctx context.Context) (*thread.Thread, error) {
	ctx, span := observability.StartStoreSpan(ctx, "create_thread", "")
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("create_thread", time.Since(start).Seconds()) }(time.Now())

	t := thread.NewThread(s.ids.Next("thread"))
	rec, err := threadToRecord(t)
	if err != nil {
		return nil, dbError(ctx, "encode thread", err)
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		observability.RecordError(span, err)
		return nil, dbError(ctx, "create thread", err)
	}
	return t, nil
}

func (s *Store) SaveThread(ctx context.Context, t *thread.Thread) error {
	ctx, span := observability.StartStoreSpan(ctx, "save_thread", t.ID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("save_thread", time.Since(start).Seconds()) }(time.Now())

	rec, err := threadToRecord(t)
	if err != nil {
		return dbError(ctx, "encode thread", err)
	}

	var existing threadRecord
	err = s.db.WithContext(ctx).Where("public_id = ?", t.ID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
			observability.RecordError(span, err)
			return dbError(ctx, "insert thread", err)
		}
		return nil
	case err != nil:
		observability.RecordError(span, err)
		return dbError(ctx, "load thread", err)
	}

	updates := map[string]any{
		"title":    rec.Title,
		"status":   rec.Status,
		"metadata": rec.Metadata,
	}
	if err := s.db.WithContext(ctx).Model(&threadRecord{}).
		Where("public_id = ?", t.ID).Updates(updates).Error; err != nil {
		observability.RecordError(span, err)
		return dbError(ctx, "update thread", err)
	}
	return nil
}

func (s *Store) LoadThread(ctx context.Context, threadID string) (*thread.Thread, error) {
	ctx, span := observability.StartStoreSpan(ctx, "load_thread", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("load_thread", time.Since(start).Seconds()) }(time.Now())

	var rec threadRecord
	err := s.db.WithContext(ctx).Where("public_id = ?", threadID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, thread.ErrThreadNotFound(ctx, threadID)
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, dbError(ctx, "load thread", err)
	}
	return recordToThread(&rec)
}

func (s *Store) LoadThreads(ctx context.Context, q thread.ListQuery) (thread.Page[*thread.Thread], error) {
	ctx, span := observability.StartStoreSpan(ctx, "load_threads", "")
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("load_threads", time.Since(start).Seconds()) }(time.Now())

	// Rows come back in insertion order; Paginate layers the created_at
	// sort and cursor window on top so the position-based tiebreak matches
	// the memory backend exactly.
	var recs []threadRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		observability.RecordError(span, err)
		return thread.Page[*thread.Thread]{}, dbError(ctx, "list threads", err)
	}
	all := make([]*thread.Thread, 0, len(recs))
	for idx := range recs {
		t, err := recordToThread(&recs[idx])
		if err != nil {
			return thread.Page[*thread.Thread]{}, dbError(ctx, "decode thread", err)
		}
		all = append(all, t)
	}
	return thread.Paginate(all,
		func(t *thread.Thread) string { return t.ID },
		func(t *thread.Thread) time.Time { return t.CreatedAt },
		q), nil
}

func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	ctx, span := observability.StartStoreSpan(ctx, "delete_thread", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("delete_thread", time.Since(start).Seconds()) }(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_public_id = ?", threadID).Delete(&threadItemRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("public_id = ?", threadID).Delete(&threadRecord{}).Error
	})
	if err != nil {
		observability.RecordError(span, err)
		return dbError(ctx, "delete thread", err)
	}
	return nil
}

func (s *Store) AddThreadItem(ctx context.Context, threadID string, item thread.Item) error {
	ctx, span := observability.StartStoreSpan(ctx, "add_item", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("add_item", time.Since(start).Seconds()) }(time.Now())

	if err := s.requireThread(ctx, threadID); err != nil {
		return err
	}
	rec, err := itemToRecord(threadID, item)
	if err != nil {
		return dbError(ctx, "encode item", err)
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		observability.RecordError(span, err)
		return dbError(ctx, "insert item", err)
	}
	return nil
}

func (s *Store) SaveItem(ctx context.Context, threadID string, item thread.Item) error {
	ctx, span := observability.StartStoreSpan(ctx, "save_item", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("save_item", time.Since(start).Seconds()) }(time.Now())

	if err := s.requireThread(ctx, threadID); err != nil {
		return err
	}
	rec, err := itemToRecord(threadID, item)
	if err != nil {
		return dbError(ctx, "encode item", err)
	}

	var existing threadItemRecord
	err = s.db.WithContext(ctx).
		Where("thread_public_id = ? AND public_id = ?", threadID, item.ID).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
			observability.RecordError(span, err)
			return dbError(ctx, "insert item", err)
		}
		return nil
	case err != nil:
		observability.RecordError(span, err)
		return dbError(ctx, "load item", err)
	}

	// Replace in place: keep the row id so list position is stable.
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		observability.RecordError(span, err)
		return dbError(ctx, "update item", err)
	}
	return nil
}

func (s *Store) LoadItem(ctx context.Context, threadID, itemID string) (thread.Item, error) {
	ctx, span := observability.StartStoreSpan(ctx, "load_item", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("load_item", time.Since(start).Seconds()) }(time.Now())

	if err := s.requireThread(ctx, threadID); err != nil {
		return thread.Item{}, err
	}
	var rec threadItemRecord
	err := s.db.WithContext(ctx).
		Where("thread_public_id = ? AND public_id = ?", threadID, itemID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return thread.Item{}, thread.ErrItemNotFound(ctx, threadID, itemID)
	}
	if err != nil {
		observability.RecordError(span, err)
		return thread.Item{}, dbError(ctx, "load item", err)
	}
	return recordToItem(&rec)
}

func (s *Store) DeleteThreadItem(ctx context.Context, threadID, itemID string) error {
	ctx, span := observability.StartStoreSpan(ctx, "delete_item", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("delete_item", time.Since(start).Seconds()) }(time.Now())

	err := s.db.WithContext(ctx).
		Where("thread_public_id = ? AND public_id = ?", threadID, itemID).
		Delete(&threadItemRecord{}).Error
	if err != nil {
		observability.RecordError(span, err)
		return dbError(ctx, "delete item", err)
	}
	return nil
}

func (s *Store) LoadThreadItems(ctx context.Context, threadID string, q thread.ListQuery) (thread.Page[thread.Item], error) {
	ctx, span := observability.StartStoreSpan(ctx, "load_items", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("load_items", time.Since(start).Seconds()) }(time.Now())

	items, err := s.loadOrderedItems(ctx, threadID)
	if err != nil {
		observability.RecordError(span, err)
		return thread.Page[thread.Item]{}, err
	}
	return thread.Paginate(items,
		func(i thread.Item) string { return i.ID },
		func(i thread.Item) time.Time { return i.CreatedAt },
		q), nil
}

func (s *Store) LoadFullThread(ctx context.Context, threadID string) (*thread.FullThread, error) {
	ctx, span := observability.StartStoreSpan(ctx, "load_full_thread", threadID)
	defer span.End()
	defer func(start time.Time) { metrics.RecordStoreOp("load_full_thread", time.Since(start).Seconds()) }(time.Now())

	t, err := s.LoadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	items, err := s.loadOrderedItems(ctx, threadID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	page := thread.Paginate(thread.VisibleItems(items),
		func(i thread.Item) string { return i.ID },
		func(i thread.Item) time.Time { return i.CreatedAt },
		thread.ListQuery{Limit: thread.MaxListLimit})
	return &thread.FullThread{Thread: *t, Items: page}, nil
}

func (s *Store) requireThread(ctx context.Context, threadID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&threadRecord{}).
		Where("public_id = ?", threadID).Count(&count).Error
	if err != nil {
		return dbError(ctx, "load thread", err)
	}
	if count == 0 {
		return thread.ErrThreadNotFound(ctx, threadID)
	}
	return nil
}

func (s *Store) loadOrderedItems(ctx context.Context, threadID string) ([]thread.Item, error) {
	var recs []threadItemRecord
	err := s.db.WithContext(ctx).
		Where("thread_public_id = ?", threadID).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, dbError(ctx, "list items", err)
	}
	items := make([]thread.Item, 0, len(recs))
	for idx := range recs {
		item, err := recordToItem(&recs[idx])
		if err != nil {
			return nil, dbError(ctx, "decode item", err)
		}
		items = append(items, item)
	}
	return items, nil
}
