package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"carbooker/internal/domain"
)

// FailoverDedupStore serves from the primary store and falls back to the
// in-memory one when the primary errors, re-probing it after a cooldown.
// During a fallback window replays may be re-processed; webhook settlement
// stays safe because the payment status swap is itself idempotent.
type FailoverDedupStore struct {
	primary   domain.DedupStore
	fallback  domain.DedupStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverDedupStore(primary, fallback domain.DedupStore, logger *zerolog.Logger) *FailoverDedupStore {
	return &FailoverDedupStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverDedupStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if !f.isDown.Load() || f.shouldRetry() {
		claimed, err := f.primary.MarkProcessed(ctx, eventID, ttl)
		if err == nil {
			f.isDown.Store(false)
			return claimed, nil
		}
		f.logger.Error().Err(err).Msg("primary dedup store failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.MarkProcessed(ctx, eventID, ttl)
}

// Forget releases the id in both stores: during a fallback window the claim
// may live in either one.
func (f *FailoverDedupStore) Forget(ctx context.Context, eventID string) error {
	err := f.primary.Forget(ctx, eventID)
	if err != nil {
		f.logger.Warn().Err(err).Str("event_id", eventID).Msg("primary dedup store forget failed")
	}
	if ferr := f.fallback.Forget(ctx, eventID); ferr != nil {
		return ferr
	}
	return err
}

// shouldRetry allows one probe of the primary per cooldown minute.
func (f *FailoverDedupStore) shouldRetry() bool {
	last := f.lastCheck.Load()
	if time.Since(time.Unix(0, last)) < time.Minute {
		return false
	}
	return f.lastCheck.CompareAndSwap(last, time.Now().UnixNano())
}

func (f *FailoverDedupStore) Close() error {
	if err := f.primary.Close(); err != nil {
		return err
	}
	return f.fallback.Close()
}
