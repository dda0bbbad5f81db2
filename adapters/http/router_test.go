package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/application/service/servicetest"
	adminUC "github.com/khoahotran/career-path/internal/application/usecase/admin"
	cvUC "github.com/khoahotran/career-path/internal/application/usecase/cv"
	jobUC "github.com/khoahotran/career-path/internal/application/usecase/job"
	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/career-path/internal/application/usecase/roadmap"
	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/auth"
	"github.com/khoahotran/career-path/pkg/logger"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*profile.Profile
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, apperror.NewNotFound("profile", id.String())
	}
	return p.Clone(), nil
}

func (r *memRepo) Upsert(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = p.Clone()
	return nil
}

type memBackend struct {
	mu      sync.Mutex
	roadmap *roadmap.Roadmap
	jobsErr error
}

func (b *memBackend) Generate(_ context.Context, req roadmap.GenerateRequest) (*roadmap.Roadmap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roadmap = &roadmap.Roadmap{
		Email:      req.Email,
		CareerGoal: req.CareerGoal,
		Milestones: []roadmap.Milestone{{Title: "Foundations", Tasks: []roadmap.Task{{Title: "Learn Go"}, {Title: "Learn SQL"}}}},
	}
	return b.roadmap.Clone(), nil
}

func (b *memBackend) Fetch(_ context.Context, email string, _ bool) (*roadmap.Roadmap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.roadmap == nil {
		return nil, apperror.NewNotFound("roadmap", email)
	}
	return b.roadmap.Clone(), nil
}

func (b *memBackend) Update(_ context.Context, _ string, r *roadmap.Roadmap) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roadmap = r.Clone()
	return nil
}

func (b *memBackend) SyncProfile(context.Context, *profile.Profile) error { return nil }

func (b *memBackend) JobRecommendations(context.Context, string, bool) (json.RawMessage, error) {
	return nil, b.jobsErr
}

func (b *memBackend) SkillsGap(context.Context, string, bool) (json.RawMessage, error) {
	return json.RawMessage(`{"missing":["Kubernetes"]}`), nil
}

type staticAdmins map[uuid.UUID]bool

func (a staticAdmins) Exists(_ context.Context, id uuid.UUID) (bool, error) { return a[id], nil }

type staticCatalog []job.Listing

func (c staticCatalog) List(context.Context, job.Filter) ([]job.Listing, error) { return c, nil }

type cvStub struct{}

func (cvStub) Parse(context.Context, string) (*service.CVFields, error) {
	return &service.CVFields{Skills: []string{"Go", "Docker"}, CareerGoal: "Platform Engineer"}, nil
}

type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	registry *profileUC.Registry
	progress *roadmapUC.ProgressUseCase
	repo     *memRepo
	backend  *memBackend
	cache    *servicetest.MemCache
	token    string
	userID   uuid.UUID
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNopLogger()
	s.cache = servicetest.NewMemCache()
	cache := s.cache

	s.userID = uuid.New()
	s.repo = &memRepo{rows: map[uuid.UUID]*profile.Profile{}}
	s.backend = &memBackend{jobsErr: apperror.NewRemoteUnavailable("backend", "503", nil)}

	jwtSvc := auth.NewJWTService("test-secret", time.Hour, "")
	token, err := jwtSvc.GenerateToken(s.userID, "ada@example.com", "Ada Lovelace")
	s.Require().NoError(err)
	s.token = token

	s.progress = roadmapUC.NewProgressUseCase(s.backend, cache, nil, log, time.Second)
	s.registry = profileUC.NewRegistry(cache, log, func() *profileUC.Reconciler {
		return profileUC.NewReconciler(s.repo, s.backend, cache, log,
			profileUC.WithRoadmapSink(s.progress),
			profileUC.WithBackgroundTimeout(time.Second),
		)
	})
	jobs := jobUC.NewJobUseCase(s.backend, staticCatalog{
		{ID: "1", Title: "Go Developer", Skills: []string{"Go"}},
	}, cache, log)

	s.router = NewRouter("career-path-test", Handlers{
		Session: NewSessionHandler(s.registry, s.progress, log),
		Profile: NewProfileHandler(s.registry, log),
		Roadmap: NewRoadmapHandler(s.progress, s.registry, log),
		Job:     NewJobHandler(jobs, s.registry, log),
		CV:      NewCVHandler(cvUC.NewAnalyzeCVUseCase(cvStub{}, log, time.Second), s.registry, log),
		Admin:   NewAdminHandler(adminUC.NewIsAdminUseCase(staticAdmins{s.userID: true}, log)),
	}, jwtSvc, log)
}

func (s *RouterTestSuite) TearDownTest() {
	s.registry.Wait()
	s.progress.Wait()
}

func (s *RouterTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](s *RouterTestSuite, rr *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *RouterTestSuite) TestHealthIsPublic() {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterTestSuite) TestRejectsMissingAndBadTokens() {
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusUnauthorized, rr.Code)

	s.token = "not-a-jwt"
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/profile", nil).Code)
}

func (s *RouterTestSuite) TestSignInCreatesProfile() {
	rr := s.do(http.MethodPost, "/api/session", nil)
	s.Require().Equal(http.StatusOK, rr.Code)

	dto := decode[ProfileStateDTO](s, rr)
	s.Require().NotNil(dto.Profile)
	s.Equal("ada@example.com", dto.Profile.Email)
	s.Equal("Ada Lovelace", dto.Profile.Name)

	s.registry.Wait()
	_, err := s.repo.GetByID(context.Background(), s.userID)
	s.NoError(err)
}

func (s *RouterTestSuite) TestUpdateProfile() {
	rr := s.do(http.MethodPut, "/api/profile", gin.H{"skills": []string{"Go"}, "career_goal": "Backend Engineer"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	res := decode[profileUC.UpdateResult](s, rr)
	s.True(res.Success)
	s.False(res.Partial)
	s.Equal([]string{"Go"}, res.Profile.Skills)

	rr = s.do(http.MethodPut, "/api/profile", gin.H{"skills": []string{" "}})
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *RouterTestSuite) TestRoadmapNotFoundThenGenerateAndTrack() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/roadmap", nil).Code)

	rr := s.do(http.MethodPost, "/api/roadmap/generate", nil)
	s.Equal(http.StatusBadRequest, rr.Code, "no goal anywhere")

	rr = s.do(http.MethodPost, "/api/roadmap/generate", gin.H{"career_goal": "SRE"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	r := decode[roadmap.Roadmap](s, rr)
	s.Require().Len(r.Milestones, 1)
	taskID := r.Milestones[0].Tasks[1].ID

	rr = s.do(http.MethodPatch, "/api/roadmap/milestones/0/tasks/"+taskID, gin.H{"status": "done"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	r = decode[roadmap.Roadmap](s, rr)
	s.Equal(50, r.Progress.Percentage)
	s.Equal(roadmap.StatusDone, r.Milestones[0].Tasks[1].Status)

	rr = s.do(http.MethodPatch, "/api/roadmap/milestones/"+r.Milestones[0].ID, gin.H{"status": "done"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	r = decode[roadmap.Roadmap](s, rr)
	s.Equal(100, r.Progress.Percentage)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/api/roadmap/milestones/0/tasks/0", gin.H{"status": "blocked"}).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPatch, "/api/roadmap/milestones/0/tasks/nope", gin.H{"status": "done"}).Code)
}

func (s *RouterTestSuite) TestRecommendationsFallBackToCatalog() {
	rr := s.do(http.MethodPut, "/api/profile", gin.H{"skills": []string{"Go"}})
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/api/jobs/recommendations?location=Remote", nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	rec := decode[jobUC.Recommendations](s, rr)
	s.Equal(jobUC.SourceCatalog, rec.Source)
	s.Require().Len(rec.Matches, 1)
	s.Equal(60, rec.Matches[0].Score)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/jobs/recommendations?limit=-1", nil).Code)
}

func (s *RouterTestSuite) TestScoreListings() {
	rr := s.do(http.MethodPost, "/api/jobs/score", ScoreListingsRequest{Listings: []job.Listing{{ID: "x", Skills: []string{"Cobol"}}}})
	s.Require().Equal(http.StatusOK, rr.Code)
	res := decode[ScoreListingsResponse](s, rr)
	s.Require().Len(res.Matches, 1)
	s.Equal(0, res.Matches[0].Score)
}

func (s *RouterTestSuite) TestSkillsGapPassesBackendDocument() {
	rr := s.do(http.MethodGet, "/api/skills-gap", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"missing":["Kubernetes"]}`, rr.Body.String())
}

func (s *RouterTestSuite) TestAnalyzeCV() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/cv/analyze", gin.H{"text": "short"}).Code)

	text := "Platform engineer with eight years of Go, Docker and Kubernetes in production."
	rr := s.do(http.MethodPost, "/api/cv/analyze", AnalyzeCVRequest{Text: text})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	out := decode[cvUC.AnalyzeCVOutput](s, rr)
	s.True(out.Update.Success)
	s.Equal("Platform Engineer", out.Update.Profile.CareerGoal)
}

func (s *RouterTestSuite) TestAdminMe() {
	rr := s.do(http.MethodGet, "/api/admin/me", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(true, decode[map[string]any](s, rr)["is_admin"])
}

func (s *RouterTestSuite) TestSignOutForgetsState() {
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/session", nil).Code)
	s.registry.Wait()

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/session", nil).Code)
	_, ok := s.registry.Get(s.userID)
	s.False(ok)
}

func (s *RouterTestSuite) TestSignOutClearsMirrorWithoutLiveSession() {
	// a fresh process has no reconciler for the user yet
	stale := &profile.Profile{ID: s.userID, Email: "ada@example.com"}
	s.Require().NoError(s.cache.Store(context.Background(), s.userID, service.CacheKeyProfile, stale))

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/session", nil).Code)
	s.False(s.cache.Has(s.userID, service.CacheKeyProfile))
}

func (s *RouterTestSuite) TestErrorMiddlewareHidesUnknownErrors() {
	r := gin.New()
	r.Use(ErrorMiddleware(logger.NewNopLogger()))
	r.GET("/boom", func(c *gin.Context) { c.Error(errors.New("driver exploded")) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "driver exploded")
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
