package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

// IdempotencySweeper periodically deletes expired idempotency records so
// the table only holds keys that can still be replayed.
type IdempotencySweeper struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewIdempotencySweeper builds a sweeper that runs every interval.
func NewIdempotencySweeper(db *gorm.DB, interval time.Duration) *IdempotencySweeper {
	return &IdempotencySweeper{
		db:       db,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("component", "idempotency-sweeper").Logger(),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. Only the first call has an effect,
// and a non-positive interval disables the sweeper.
func (s *IdempotencySweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
		s.log.Info().Dur("interval", s.interval).Msg("sweeper started")
	})
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *IdempotencySweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *IdempotencySweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep purges expired records once and returns how many were removed.
func (s *IdempotencySweeper) Sweep(ctx context.Context) int64 {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.db, s.now())
	if err != nil {
		s.log.Warn().Err(err).Msg("purge expired idempotency keys")
		return 0
	}
	if n > 0 {
		s.log.Debug().Int64("removed", n).Msg("purged expired idempotency keys")
	}
	return n
}
