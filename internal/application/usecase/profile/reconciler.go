package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

var tracer = otel.Tracer("profile_usecase")

// ProfileSync is the part of the backend service the reconciler talks to.
type ProfileSync interface {
	SyncProfile(ctx context.Context, p *profile.Profile) error
	Generate(ctx context.Context, req roadmap.GenerateRequest) (*roadmap.Roadmap, error)
}

// RoadmapSink receives roadmaps generated as a side effect of an update.
type RoadmapSink interface {
	Replace(ctx context.Context, userID uuid.UUID, email string, r *roadmap.Roadmap)
}

type Option func(*Reconciler)

func WithEvents(p service.EventPublisher) Option {
	return func(r *Reconciler) { r.events = p }
}

func WithRoadmapSink(s RoadmapSink) Option {
	return func(r *Reconciler) { r.roadmaps = s }
}

func WithBackgroundTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.bgTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler owns the profile and session state of one user. It is the only
// writer of that state and of the profile cache mirror. Writes are
// serialised, so the last call wins regardless of network timing.
type Reconciler struct {
	repo     profile.Repository
	backend  ProfileSync
	cache    service.LocalCache
	events   service.EventPublisher
	roadmaps RoadmapSink
	logger   logger.Logger

	bgTimeout time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	state   State
	subs    map[int]chan State
	nextSub int

	writeMu sync.Mutex
	bg      sync.WaitGroup
}

func NewReconciler(repo profile.Repository, backend ProfileSync, cache service.LocalCache, log logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:      repo,
		backend:   backend,
		cache:     cache,
		logger:    log,
		bgTimeout: 30 * time.Second,
		now:       func() time.Time { return time.Now().UTC() },
		subs:      make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UpdateResult reports how far an update got. The local commit always
// happened when a result is returned.
type UpdateResult struct {
	Success    bool             `json:"success"`
	Partial    bool             `json:"partial"`
	Profile    *profile.Profile `json:"data"`
	Error      string           `json:"error,omitempty"`
	StoreErr   error            `json:"-"`
	BackendErr error            `json:"-"`
}

// OnSessionChange reacts to the identity provider. A nil session signs the
// user out: state and the profile mirror are cleared.
func (r *Reconciler) OnSessionChange(ctx context.Context, s *profile.Session) State {
	if s == nil {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()

		prev := r.State().Session
		st := r.commit(func(st *State) { *st = State{Version: st.Version} })
		if prev != nil {
			r.dropMirror(ctx, prev.User.ID)
		}
		r.logger.Info("Session ended, profile cleared")
		return st
	}
	return r.ResolveProfile(ctx, s)
}

// ResolveProfile loads the profile for s from the remote store and the cache
// and applies the reconciliation decision. It never fails: unreachable
// sources degrade the state instead, and loading always ends false.
func (r *Reconciler) ResolveProfile(ctx context.Context, s *profile.Session) State {
	ctx, span := tracer.Start(ctx, "ResolveProfile")
	defer span.End()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	log := r.logger.With(zap.String("user_id", s.User.ID.String()))
	sess := *s
	held := r.State().Profile
	r.commit(func(st *State) {
		if st.Session == nil || st.Session.User.ID != sess.User.ID {
			st.Profile = nil
		}
		st.Session = &sess
		st.Loading = true
		st.Err = nil
	})

	remote := r.readRemote(ctx, s.User.ID)
	cache := r.readCache(ctx, s.User.ID)
	d := Reconcile(s, remote, cache, held, r.now())

	span.SetAttributes(
		attribute.String("remote", remote.Health.String()),
		attribute.String("cache", cache.Health.String()),
		attribute.String("origin", string(d.Origin)),
	)
	log.Info("Profile resolved",
		zap.String("origin", string(d.Origin)),
		zap.String("remote", remote.Health.String()),
		zap.String("cache", cache.Health.String()),
		zap.Bool("degraded", d.Degraded),
	)

	st := r.commit(func(st *State) {
		st.Profile = d.Profile
		st.Loading = false
		st.Degraded = d.Degraded
		st.Err = d.Err
	})
	if d.Err != nil {
		span.RecordError(d.Err)
	}
	if d.Profile == nil {
		return st
	}

	if d.WriteCache {
		if err := r.cache.Store(ctx, s.User.ID, service.CacheKeyProfile, d.Profile); err != nil {
			log.Warn("Failed to mirror profile to cache", zap.Error(err))
		}
	}

	if d.StampRemote {
		stamped := d.Profile.Clone()
		version := st.Version
		r.spawn(ctx, func(bgCtx context.Context) {
			r.writeMu.Lock()
			defer r.writeMu.Unlock()
			if r.State().Version != version {
				log.Debug("Skipping sign-in stamp, profile changed meanwhile")
				return
			}
			if err := r.repo.Upsert(bgCtx, stamped); err != nil {
				log.Warn("Failed to update last sign in time", zap.Error(err))
			}
		})
	}

	if d.CreateRemote {
		if err := r.repo.Upsert(ctx, d.Profile); err != nil {
			log.Warn("Failed to create profile in remote store", zap.Error(err))
		} else {
			log.Info("New profile created in remote store")
		}
	}
	if d.NotifyBackend {
		if err := r.backend.SyncProfile(ctx, d.Profile); err != nil {
			log.Warn("Failed to sync new profile to backend", zap.Error(err))
		}
	}
	return st
}

// UpdateProfile merges patch into the current profile, commits it locally
// and to the cache, then writes it to the remote store and the backend.
// Only a missing session and invalid input are returned as errors.
func (r *Reconciler) UpdateProfile(ctx context.Context, patch profile.Patch) (*UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	if err := patch.Validate(); err != nil {
		span.RecordError(err)
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.State()
	if cur.Session == nil {
		err := apperror.NewAuthRequired("profile update without an active session")
		span.RecordError(err)
		return nil, err
	}
	s := cur.Session
	log := r.logger.With(zap.String("user_id", s.User.ID.String()))
	span.SetAttributes(attribute.String("user_id", s.User.ID.String()))

	baseline := r.baseline(ctx, s, cur.Profile)

	merged := patch.Apply(baseline)
	now := r.now()
	merged.ID = s.User.ID
	merged.FillFromSession(s)
	merged.UpdatedAt = now
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.ProfileComplete = true
	merged.IsOnboarded = baseline.IsOnboarded || patch.Onboards()

	r.commit(func(st *State) {
		st.Profile = merged
		st.Err = nil
	})
	if err := r.cache.Store(ctx, s.User.ID, service.CacheKeyProfile, merged); err != nil {
		log.Warn("Failed to mirror profile to cache", zap.Error(err))
	}

	var storeErr, backendErr error
	var g errgroup.Group
	g.Go(func() error {
		storeErr = r.repo.Upsert(ctx, merged)
		return nil
	})
	g.Go(func() error {
		backendErr = r.backend.SyncProfile(ctx, merged)
		return nil
	})
	_ = g.Wait()

	res := &UpdateResult{
		Success:    storeErr == nil || backendErr == nil,
		Partial:    storeErr != nil,
		Profile:    merged.Clone(),
		StoreErr:   storeErr,
		BackendErr: backendErr,
	}

	if storeErr != nil {
		span.RecordError(storeErr)
		log.Error("Remote store profile update failed", storeErr)
		res.Error = "Database update failed: " + storeErr.Error()
		if backendErr != nil {
			res.Error += " Backend update also failed."
		}
	} else {
		r.commit(func(st *State) { st.Degraded = false })
	}

	if backendErr != nil {
		log.Warn("Backend profile sync failed", zap.Error(backendErr))
		r.publishProfileEvent(ctx, service.ProfileEvent{
			Type:    service.ProfileEventSyncFailed,
			UserID:  s.User.ID,
			Profile: merged.Clone(),
			Reason:  backendErr.Error(),
		})
	} else {
		r.publishProfileEvent(ctx, service.ProfileEvent{
			Type:    service.ProfileEventUpdated,
			UserID:  s.User.ID,
			Profile: merged.Clone(),
		})
	}

	if len(merged.Skills) > 0 && strings.TrimSpace(merged.CareerGoal) != "" {
		r.requestRoadmap(ctx, s, merged)
	}

	return res, nil
}

// ClearProfile drops the in-memory profile and the cache mirror. The remote
// store is left alone.
func (r *Reconciler) ClearProfile(ctx context.Context) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	sess := r.State().Session
	r.commit(func(st *State) {
		st.Profile = nil
		st.Degraded = false
		st.Err = nil
	})
	if sess != nil {
		r.dropMirror(ctx, sess.User.ID)
	}
}

// Wait blocks until background work started by the reconciler is done.
func (r *Reconciler) Wait() {
	r.bg.Wait()
}

func (r *Reconciler) baseline(ctx context.Context, s *profile.Session, current *profile.Profile) *profile.Profile {
	if current.BelongsTo(s) {
		return current
	}
	p, err := r.repo.GetByID(ctx, s.User.ID)
	if err == nil && p.BelongsTo(s) {
		return p
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		r.logger.Warn("Could not read baseline profile, using session stub",
			zap.String("user_id", s.User.ID.String()), zap.Error(err))
	}
	return profile.Stub(s)
}

func (r *Reconciler) readRemote(ctx context.Context, id uuid.UUID) Reading {
	p, err := r.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return Reading{Profile: p, Health: SourceAvailable}
	case errors.Is(err, apperror.ErrNotFound):
		return Reading{Health: SourceMissing}
	default:
		r.logger.Warn("Remote store unavailable, falling back to cache",
			zap.String("user_id", id.String()), zap.Error(err))
		return Reading{Health: SourceUnavailable, Err: err}
	}
}

func (r *Reconciler) readCache(ctx context.Context, id uuid.UUID) Reading {
	var p profile.Profile
	found, err := r.cache.Load(ctx, id, service.CacheKeyProfile, &p)
	switch {
	case err != nil:
		r.logger.Warn("Profile cache unreadable", zap.String("user_id", id.String()), zap.Error(err))
		return Reading{Health: SourceUnavailable, Err: err}
	case !found:
		return Reading{Health: SourceMissing}
	}
	return Reading{Profile: &p, Health: SourceAvailable}
}

func (r *Reconciler) dropMirror(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, id, service.CacheKeyProfile); err != nil {
		r.logger.Warn("Failed to clear profile cache", zap.String("user_id", id.String()), zap.Error(err))
	}
}

func (r *Reconciler) requestRoadmap(ctx context.Context, s *profile.Session, p *profile.Profile) {
	req := roadmap.GenerateRequest{
		Email:           p.Email,
		CareerGoal:      p.CareerGoal,
		Skills:          append([]string(nil), p.Skills...),
		ExperienceLevel: p.Level,
	}
	if req.Email == "" {
		req.Email = s.User.Email
	}
	if req.ExperienceLevel == "" {
		req.ExperienceLevel = profile.DefaultLevel
	}
	userID := s.User.ID

	r.spawn(ctx, func(bgCtx context.Context) {
		rm, err := r.backend.Generate(bgCtx, req)
		if err != nil {
			r.logger.Warn("Non-critical roadmap generation error", zap.String("user_id", userID.String()), zap.Error(err))
			return
		}
		if r.roadmaps != nil && rm != nil {
			r.roadmaps.Replace(bgCtx, userID, req.Email, rm)
		}
	})
}

func (r *Reconciler) publishProfileEvent(ctx context.Context, e service.ProfileEvent) {
	if r.events == nil {
		return
	}
	r.spawn(ctx, func(bgCtx context.Context) {
		if err := r.events.PublishProfileEvent(bgCtx, e); err != nil {
			r.logger.Error("Failed to publish profile event", err,
				zap.String("type", string(e.Type)), zap.String("user_id", e.UserID.String()))
		}
	})
}

// spawn runs fn detached from the caller's cancellation but bounded by the
// background timeout.
func (r *Reconciler) spawn(ctx context.Context, fn func(context.Context)) {
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.bgTimeout)
		defer cancel()
		fn(bgCtx)
	}()
}

func (r *Reconciler) String() string {
	st := r.State()
	if st.Session == nil {
		return "reconciler(signed out)"
	}
	return fmt.Sprintf("reconciler(%s v%d)", st.Session.User.ID, st.Version)
}
