package roadmap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

var tracer = otel.Tracer("roadmap_usecase")

const EventProgressUpdated = "roadmap.progress_updated"

// board is the in-memory roadmap of one user. version increases on every
// local change; persists of older versions are dropped.
type board struct {
	mu      sync.Mutex
	current *roadmap.Roadmap
	version uint64

	persistMu sync.Mutex
}

type ProgressUseCase struct {
	store  roadmap.Store
	cache  service.LocalCache
	events service.EventPublisher
	logger logger.Logger

	bgTimeout time.Duration
	now       func() time.Time

	mu     sync.Mutex
	boards map[uuid.UUID]*board
	bg     sync.WaitGroup
}

// NewProgressUseCase wires the use case. events may be nil.
func NewProgressUseCase(store roadmap.Store, cache service.LocalCache, events service.EventPublisher, log logger.Logger, bgTimeout time.Duration) *ProgressUseCase {
	if bgTimeout <= 0 {
		bgTimeout = 30 * time.Second
	}
	return &ProgressUseCase{
		store:     store,
		cache:     cache,
		events:    events,
		logger:    log,
		bgTimeout: bgTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		boards:    make(map[uuid.UUID]*board),
	}
}

func (uc *ProgressUseCase) board(userID uuid.UUID) *board {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	b, ok := uc.boards[userID]
	if !ok {
		b = &board{}
		uc.boards[userID] = b
	}
	return b
}

// Load returns the user's roadmap from memory, then the cache mirror, then
// the backend. force skips memory and cache and asks the backend to
// regenerate; the result supersedes local state.
func (uc *ProgressUseCase) Load(ctx context.Context, userID uuid.UUID, email string, force bool) (*roadmap.Roadmap, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	b := uc.board(userID)
	log := uc.logger.With(zap.String("user_id", userID.String()))

	if !force {
		b.mu.Lock()
		if b.current != nil {
			out := b.current.Clone()
			b.mu.Unlock()
			return out, nil
		}
		b.mu.Unlock()

		var cached roadmap.Roadmap
		found, err := uc.cache.Load(ctx, userID, service.CacheKeyRoadmap, &cached)
		if err != nil {
			log.Warn("Roadmap cache unreadable", zap.Error(err))
		}
		if found {
			return uc.adopt(ctx, b, userID, cached.Normalize(), false), nil
		}
	} else if err := uc.cache.Delete(ctx, userID, service.CacheKeyRoadmap); err != nil {
		log.Warn("Failed to invalidate roadmap cache", zap.Error(err))
	}

	fetched, err := uc.store.Fetch(ctx, email, force)
	if err != nil {
		span.RecordError(err)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.current != nil && !errors.Is(err, apperror.ErrNotFound) {
			log.Warn("Roadmap refresh failed, keeping local copy", zap.Error(err))
			return b.current.Clone(), nil
		}
		return nil, err
	}
	return uc.adopt(ctx, b, userID, fetched.Normalize(), force), nil
}

// Generate asks the backend for a new roadmap; it replaces local state.
func (uc *ProgressUseCase) Generate(ctx context.Context, userID uuid.UUID, req roadmap.GenerateRequest) (*roadmap.Roadmap, error) {
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()

	r, err := uc.store.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return uc.adopt(ctx, uc.board(userID), userID, r.Normalize(), true), nil
}

// Replace installs a roadmap produced elsewhere, e.g. by a profile update.
func (uc *ProgressUseCase) Replace(ctx context.Context, userID uuid.UUID, email string, r *roadmap.Roadmap) {
	n := r.Normalize()
	if n.Email == "" {
		n.Email = email
	}
	uc.adopt(ctx, uc.board(userID), userID, n, true)
	uc.logger.Info("Roadmap replaced", zap.String("user_id", userID.String()))
}

// adopt installs r as the board's roadmap. Without supersede it only fills an
// empty board, so a concurrent local edit is never lost to a slower read.
func (uc *ProgressUseCase) adopt(ctx context.Context, b *board, userID uuid.UUID, r *roadmap.Roadmap, supersede bool) *roadmap.Roadmap {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !supersede && b.current != nil {
		return b.current.Clone()
	}
	b.current = r
	b.version++
	uc.mirror(ctx, userID, r)
	return r.Clone()
}

func (uc *ProgressUseCase) SetTaskStatus(ctx context.Context, userID uuid.UUID, email string, milestoneIdx, taskIdx int, s roadmap.Status) (*roadmap.Roadmap, error) {
	return uc.mutate(ctx, "SetTaskStatus", userID, email, func(r *roadmap.Roadmap) (*roadmap.Roadmap, error) {
		return r.SetTaskStatus(milestoneIdx, taskIdx, s)
	})
}

func (uc *ProgressUseCase) SetMilestoneStatus(ctx context.Context, userID uuid.UUID, email string, milestoneIdx int, s roadmap.Status) (*roadmap.Roadmap, error) {
	return uc.mutate(ctx, "SetMilestoneStatus", userID, email, func(r *roadmap.Roadmap) (*roadmap.Roadmap, error) {
		return r.SetMilestoneStatus(milestoneIdx, s)
	})
}

// mutate commits to memory and the cache mirror before returning, then
// persists in the background.
func (uc *ProgressUseCase) mutate(ctx context.Context, op string, userID uuid.UUID, email string, fn func(*roadmap.Roadmap) (*roadmap.Roadmap, error)) (*roadmap.Roadmap, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if _, err := uc.Load(ctx, userID, email, false); err != nil {
		span.RecordError(err)
		return nil, err
	}

	b := uc.board(userID)
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return nil, apperror.NewNotFound("roadmap", email)
	}
	next, err := fn(b.current)
	if err != nil {
		b.mu.Unlock()
		span.RecordError(err)
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	next.UpdatedAt = uc.now()
	b.current = next
	b.version++
	version := b.version
	uc.mirror(ctx, userID, next)
	b.mu.Unlock()

	span.SetAttributes(attribute.Int("progress", next.Progress.Percentage))
	uc.persist(ctx, b, userID, email, next.Clone(), version)
	return next.Clone(), nil
}

// persist writes snap to the backend. Persists of one board run one at a
// time and a snapshot already superseded locally is not sent. On failure the
// last known-good roadmap is refetched and replaces local state unless the
// user changed it again meanwhile.
func (uc *ProgressUseCase) persist(ctx context.Context, b *board, userID uuid.UUID, email string, snap *roadmap.Roadmap, version uint64) {
	log := uc.logger.With(zap.String("user_id", userID.String()))
	uc.spawn(ctx, func(bgCtx context.Context) {
		b.persistMu.Lock()
		defer b.persistMu.Unlock()

		if uc.versionOf(b) != version {
			log.Debug("Skipping superseded roadmap persist")
			return
		}

		err := uc.store.Update(bgCtx, email, snap)
		if err == nil {
			uc.publish(bgCtx, email, snap.Progress)
			return
		}
		log.Warn("Roadmap persist failed, rolling back to server copy", zap.Error(err))

		good, ferr := uc.store.Fetch(bgCtx, email, false)
		if ferr != nil {
			log.Error("Roadmap rollback refetch failed", ferr)
			return
		}
		good = good.Normalize()

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.version != version {
			log.Info("Newer local roadmap change exists, rollback skipped")
			return
		}
		b.current = good
		b.version++
		uc.mirror(bgCtx, userID, good)
	})
}

func (uc *ProgressUseCase) versionOf(b *board) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (uc *ProgressUseCase) mirror(ctx context.Context, userID uuid.UUID, r *roadmap.Roadmap) {
	if err := uc.cache.Store(ctx, userID, service.CacheKeyRoadmap, r); err != nil {
		uc.logger.Warn("Failed to mirror roadmap to cache", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (uc *ProgressUseCase) publish(ctx context.Context, email string, p roadmap.Progress) {
	if uc.events == nil {
		return
	}
	e := service.RoadmapEvent{Type: EventProgressUpdated, Email: email, Progress: p}
	if err := uc.events.PublishRoadmapEvent(ctx, e); err != nil {
		uc.logger.Error("Failed to publish roadmap event", err, zap.String("email", email))
	}
}

// Forget drops the in-memory board of a signed-out user.
func (uc *ProgressUseCase) Forget(userID uuid.UUID) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.boards, userID)
}

// Wait blocks until pending persists are done.
func (uc *ProgressUseCase) Wait() {
	uc.bg.Wait()
}

func (uc *ProgressUseCase) spawn(ctx context.Context, fn func(context.Context)) {
	uc.bg.Add(1)
	go func() {
		defer uc.bg.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.bgTimeout)
		defer cancel()
		fn(bgCtx)
	}()
}
