// Package worker hosts background maintenance loops.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
	"github.com/chatkit-dev/chat-api/internal/infrastructure/metrics"
)

// Sweeper periodically removes threads older than the retention TTL.
type Sweeper struct {
	store    thread.Store
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// Config contains sweeper configuration. A zero TTL disables sweeping.
type Config struct {
	ThreadTTL     time.Duration
	SweepInterval time.Duration
}

// NewSweeper creates a retention sweeper over store.
func NewSweeper(store thread.Store, cfg Config, log zerolog.Logger) *Sweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:    store,
		ttl:      cfg.ThreadTTL,
		interval: interval,
		log:      log.With().Str("component", "thread-sweeper").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; when the TTL is
// zero no loop is started.
func (s *Sweeper) Start(ctx context.Context) {
	if s.ttl <= 0 {
		s.log.Info().Msg("thread retention disabled")
		return
	}

	s.log.Info().
		Dur("ttl", s.ttl).
		Dur("interval", s.interval).
		Msg("starting thread sweeper")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.log.Info().Msg("thread sweeper stopped")
}

// sweep pages over all threads and deletes the expired ones. Deletion is
// idempotent, so racing a concurrent delete is harmless.
func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)
	swept := 0

	after := ""
	for {
		page, err := s.store.LoadThreads(ctx, thread.ListQuery{
			Limit: thread.MaxListLimit,
			After: after,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("sweep listing failed")
			return
		}

		for _, t := range page.Data {
			if !t.CreatedAt.Before(cutoff) {
				continue
			}
			if err := s.store.DeleteThread(ctx, t.ID); err != nil {
				s.log.Error().Err(err).Str("thread_id", t.ID).Msg("sweep delete failed")
				continue
			}
			metrics.SweptThreadsTotal.Inc()
			swept++
		}

		if !page.HasMore || page.After == nil {
			break
		}
		after = *page.After
	}

	if swept > 0 {
		s.log.Info().Int("swept", swept).Msg("expired threads removed")
	}
}
