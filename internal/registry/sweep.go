package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/s3sig/internal/lock"
	"github.com/prn-tf/s3sig/internal/metrics"
)

// Sweeper periodically marks registry rows that have sat in StateOpen for
// too long as StateAborted, on the assumption the process that opened them
// died before calling Complete or Abort. It only ever touches the registry
// row — it never calls S3's AbortMultipartUpload, since deciding whether a
// stale upload is truly abandoned and safe to abort server-side is caller
// responsibility, same as any other abort decision.
type Sweeper struct {
	Store      Store
	Locker     lock.Locker
	StaleAfter time.Duration
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// NewSweeper returns a Sweeper ready to run. A zero StaleAfter defaults to
// 24 hours. m is optional and may be nil; when non-nil, every lock attempt
// and mark-aborted call is reported to it.
func NewSweeper(store Store, locker lock.Locker, staleAfter time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &Sweeper{Store: store, Locker: locker, StaleAfter: staleAfter, Logger: logger.With().Str("component", "registry.sweeper").Logger(), Metrics: m}
}

// Run performs one sweep pass. It acquires the shared registry-GC lock
// first, so that a fleet of client processes sharing one registry only ever
// runs one sweep at a time; a process that loses the race returns nil
// without doing any work.
func (s *Sweeper) Run(ctx context.Context) error {
	acquired, err := s.Locker.Acquire(ctx, lock.Keys.RegistryGC(), s.StaleAfter)
	if err != nil {
		return err
	}
	if s.Metrics != nil {
		s.Metrics.ObserveLockAcquire(acquired)
	}
	if !acquired {
		s.Logger.Debug().Msg("another process holds the registry GC lock, skipping sweep")
		return nil
	}
	defer func() {
		if _, err := s.Locker.Release(ctx, lock.Keys.RegistryGC()); err != nil {
			s.Logger.Warn().Err(err).Msg("failed to release registry GC lock")
		}
	}()

	open, err := s.Store.ListByState(ctx, StateOpen)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-s.StaleAfter)
	swept := 0
	for _, rec := range open {
		if rec.CreatedAt.After(cutoff) {
			continue
		}
		err := s.Store.MarkState(ctx, rec.UploadID, StateAborted)
		if s.Metrics != nil {
			s.Metrics.ObserveRegistryOp("mark_state", err)
		}
		if err != nil {
			s.Logger.Warn().Err(err).Str("upload_id", rec.UploadID).Msg("failed to mark stale upload aborted")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.Logger.Info().Int("count", swept).Msg("marked stale uploads aborted")
	}
	return nil
}

// RunLoop calls Run every interval until ctx is cancelled. A failed Run is
// logged and does not stop the loop.
func (s *Sweeper) RunLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.Logger.Warn().Err(err).Msg("registry sweep failed")
			}
		}
	}
}
