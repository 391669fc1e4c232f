package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/store/memory"
	"github.com/chatkit-dev/chat-api/internal/utils/idgen"
	"github.com/chatkit-dev/chat-api/internal/utils/platformerrors"
	"github.com/chatkit-dev/chat-api/internal/worker"
)

func TestSweeperRemovesExpiredThreads(t *testing.T) {
	ctx := context.Background()
	store := memory.New(idgen.NewGenerator())

	stale, err := store.CreateThread(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	if err := store.SaveThread(ctx, stale); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	fresh, err := store.CreateThread(ctx)
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	sweeper := worker.NewSweeper(store, worker.Config{
		ThreadTTL:     time.Hour,
		SweepInterval: 10 * time.Millisecond,
	}, zerolog.Nop())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := store.LoadThread(ctx, stale.ID)
		if platformerrors.IsNotFound(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stale thread not swept before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := store.LoadThread(ctx, fresh.ID); err != nil {
		t.Errorf("fresh thread should survive the sweep: %v", err)
	}
}

func TestSweeperDisabledWithoutTTL(t *testing.T) {
	ctx := context.Background()
	store := memory.New(idgen.NewGenerator())

	old, _ := store.CreateThread(ctx)
	old.CreatedAt = time.Now().Add(-24 * time.Hour)
	if err := store.SaveThread(ctx, old); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	sweeper := worker.NewSweeper(store, worker.Config{
		SweepInterval: 5 * time.Millisecond,
	}, zerolog.Nop())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	time.Sleep(50 * time.Millisecond)

	page, err := store.LoadThreads(ctx, thread.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 1 {
		t.Errorf("zero TTL must disable sweeping, threads = %d", len(page.Data))
	}
}
