package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

// ProcessSyncEventUseCase re-posts profiles whose backend sync failed.
type ProcessSyncEventUseCase struct {
	repo       profile.Repository
	backend    ProfileSync
	logger     logger.Logger
	maxTries   uint
	maxElapsed time.Duration
	initial    time.Duration
}

func NewProcessSyncEventUseCase(repo profile.Repository, backend ProfileSync, log logger.Logger, maxTries uint, maxElapsed time.Duration) *ProcessSyncEventUseCase {
	return &ProcessSyncEventUseCase{
		repo:       repo,
		backend:    backend,
		logger:     log,
		maxTries:   maxTries,
		maxElapsed: maxElapsed,
		initial:    backoff.DefaultInitialInterval,
	}
}

// Execute ignores everything but sync_failed events. The stored row wins over
// the event payload when it is newer, so a late retry never rolls the
// backend back.
func (uc *ProcessSyncEventUseCase) Execute(ctx context.Context, e service.ProfileEvent) error {
	if e.Type != service.ProfileEventSyncFailed {
		return nil
	}
	if e.Profile == nil {
		uc.logger.Warn("Sync event without profile, skip", zap.String("user_id", e.UserID.String()))
		return nil
	}
	log := uc.logger.With(zap.String("user_id", e.UserID.String()))

	p := e.Profile
	stored, err := uc.repo.GetByID(ctx, e.UserID)
	switch {
	case err == nil && stored.UpdatedAt.After(p.UpdatedAt):
		log.Info("Stored profile is newer than event, syncing stored copy")
		p = stored
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		log.Warn("Remote store unreadable, syncing event payload", zap.Error(err))
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = uc.initial

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := uc.backend.SyncProfile(ctx, p)
		if err != nil && !errors.Is(err, apperror.ErrRemoteUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uc.maxTries),
		backoff.WithMaxElapsedTime(uc.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Profile sync retry failed", zap.Int("attempt", attempt), zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("profile sync gave up after %d attempts: %w", attempt, err)
	}

	log.Info("Profile re-synced to backend", zap.Int("attempts", attempt))
	return nil
}
