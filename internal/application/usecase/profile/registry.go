package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/logger"
)

// Registry keeps one reconciler per signed-in user so that all requests of a
// user go through the same serialised writer.
type Registry struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Reconciler
	// closed reconcilers may still run background work until Wait.
	closed []*Reconciler
	build  func() *Reconciler
	cache  service.LocalCache
	logger logger.Logger
}

func NewRegistry(cache service.LocalCache, log logger.Logger, build func() *Reconciler) *Registry {
	return &Registry{
		items:  make(map[uuid.UUID]*Reconciler),
		build:  build,
		cache:  cache,
		logger: log,
	}
}

// Open returns the reconciler of the session user, resolving the profile the
// first time the user is seen or when the session changed.
func (g *Registry) Open(ctx context.Context, s *profile.Session) *Reconciler {
	g.mu.Lock()
	r, ok := g.items[s.User.ID]
	if !ok {
		r = g.build()
		g.items[s.User.ID] = r
	}
	g.mu.Unlock()

	if cur := r.State().Session; cur == nil || *cur != *s {
		r.OnSessionChange(ctx, s)
	}
	return r
}

func (g *Registry) Get(userID uuid.UUID) (*Reconciler, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.items[userID]
	return r, ok
}

// Close signs the user out and forgets the reconciler. The profile mirror is
// cleared even when no reconciler of the user is in memory, e.g. after a
// restart.
func (g *Registry) Close(ctx context.Context, userID uuid.UUID) {
	g.mu.Lock()
	r, ok := g.items[userID]
	if ok {
		delete(g.items, userID)
		g.closed = append(g.closed, r)
	}
	g.mu.Unlock()

	if ok {
		r.OnSessionChange(ctx, nil)
	}
	if err := g.cache.Delete(ctx, userID, service.CacheKeyProfile); err != nil {
		g.logger.Warn("Failed to clear profile cache on sign out", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// Wait blocks until background work of every known or closed reconciler is
// done.
func (g *Registry) Wait() {
	g.mu.Lock()
	all := make([]*Reconciler, 0, len(g.items)+len(g.closed))
	for _, r := range g.items {
		all = append(all, r)
	}
	all = append(all, g.closed...)
	g.closed = nil
	g.mu.Unlock()

	for _, r := range all {
		r.Wait()
	}
}
