package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/application/service/servicetest"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
)

type fakeRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*profile.Profile
	getErr  error
	saveErr error
	upserts []*profile.Profile
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*profile.Profile{}}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, apperror.NewNotFound("profile", id.String())
	}
	return p.Clone(), nil
}

func (f *fakeRepo) Upsert(_ context.Context, p *profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rows[p.ID] = p.Clone()
	f.upserts = append(f.upserts, p.Clone())
	return nil
}

func (f *fakeRepo) row(id uuid.UUID) *profile.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Clone()
}

func (f *fakeRepo) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type fakeBackend struct {
	mu        sync.Mutex
	syncErr   error
	synced    []*profile.Profile
	genErr    error
	generated []roadmap.GenerateRequest
}

func (f *fakeBackend) SyncProfile(_ context.Context, p *profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced = append(f.synced, p.Clone())
	return nil
}

func (f *fakeBackend) Generate(_ context.Context, req roadmap.GenerateRequest) (*roadmap.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return (&roadmap.Roadmap{
		Email:      req.Email,
		CareerGoal: req.CareerGoal,
		Milestones: []roadmap.Milestone{{Title: "Start", Tasks: []roadmap.Task{{Title: "first"}}}},
	}).Normalize(), nil
}

func (f *fakeBackend) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.synced)
}

func (f *fakeBackend) generateRequests() []roadmap.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]roadmap.GenerateRequest(nil), f.generated...)
}

func cachedProfile(c *servicetest.MemCache, id uuid.UUID) *profile.Profile {
	var p profile.Profile
	if ok, _ := c.Load(context.Background(), id, service.CacheKeyProfile, &p); !ok {
		return nil
	}
	return &p
}

func profileEventTypes(e *servicetest.Events) []service.ProfileEventType {
	var out []service.ProfileEventType
	for _, ev := range e.ProfileEvents() {
		out = append(out, ev.Type)
	}
	return out
}

type recordingSink struct {
	mu       sync.Mutex
	replaced []*roadmap.Roadmap
}

func (s *recordingSink) Replace(_ context.Context, _ uuid.UUID, _ string, r *roadmap.Roadmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced = append(s.replaced, r)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replaced)
}
