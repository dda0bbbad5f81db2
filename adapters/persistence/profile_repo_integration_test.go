package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type ProfileRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	testLogger  logger.Logger
	profileRepo profile.Repository
	adminRepo   profile.AdminRepository
	jobCatalog  job.Catalog
}

func (s *ProfileRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	s.testLogger = logger.NewNopLogger()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		s.T().Fatalf("Failed to create migrate instance: %s", err)
	}
	if err := m.Up(); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool

	s.profileRepo = NewPostgresProfileRepo(s.dbPool, s.testLogger)
	s.adminRepo = NewPostgresAdminRepo(s.dbPool, s.testLogger)
	s.jobCatalog = NewPostgresJobCatalog(s.dbPool, s.testLogger)
}

func (s *ProfileRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func TestProfileRepoIntegration(t *testing.T) {
	if testing.Short() || os.Getenv("E2E_TESTS") == "" {
		t.Skip("Skipping integration test. Set E2E_TESTS=1 to run.")
	}
	suite.Run(t, new(ProfileRepoIntegrationTestSuite))
}

func (s *ProfileRepoIntegrationTestSuite) Test_GetByID_NotFound() {
	_, err := s.profileRepo.GetByID(context.Background(), uuid.New())

	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *ProfileRepoIntegrationTestSuite) Test_Upsert_And_GetByID() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := &profile.Profile{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		Name:      "Ada",
		Skills:    []string{"Go", "SQL"},
		Level:     profile.DefaultLevel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.NoError(s.profileRepo.Upsert(ctx, p))

	p.CareerGoal = "Backend engineer"
	p.IsOnboarded = true
	signIn := now.Add(time.Minute)
	p.LastSignIn = &signIn
	s.NoError(s.profileRepo.Upsert(ctx, p))

	found, err := s.profileRepo.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Go", "SQL"}, found.Skills)
	s.Equal("Backend engineer", found.CareerGoal)
	s.True(found.IsOnboarded)
	s.Require().NotNil(found.LastSignIn)
	s.True(found.LastSignIn.Equal(signIn))

	// a write without a sign-in time keeps the stored one
	p.LastSignIn = nil
	s.NoError(s.profileRepo.Upsert(ctx, p))
	found, err = s.profileRepo.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.NotNil(found.LastSignIn)
}

func (s *ProfileRepoIntegrationTestSuite) Test_AdminExists() {
	ctx := context.Background()
	admin := uuid.New()
	_, err := s.dbPool.Exec(ctx, `INSERT INTO admin_users (user_id) VALUES ($1)`, admin)
	s.Require().NoError(err)

	ok, err := s.adminRepo.Exists(ctx, admin)
	s.NoError(err)
	s.True(ok)

	ok, err = s.adminRepo.Exists(ctx, uuid.New())
	s.NoError(err)
	s.False(ok)
}

func (s *ProfileRepoIntegrationTestSuite) Test_JobCatalog_List() {
	ctx := context.Background()
	_, err := s.dbPool.Exec(ctx, `
		INSERT INTO job_listings (id, title, company, location, skills, posted_at) VALUES
		('j1', 'Go Developer', 'Acme', 'Remote', '{Go,PostgreSQL}', NOW() - INTERVAL '1 day'),
		('j2', 'Designer', 'Studio', 'Berlin', '{Figma}', NOW())
	`)
	s.Require().NoError(err)

	all, err := s.jobCatalog.List(ctx, job.Filter{Limit: 10})
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal("j2", all[0].ID)

	remote, err := s.jobCatalog.List(ctx, job.Filter{Location: "remote"})
	s.Require().NoError(err)
	s.Require().Len(remote, 1)
	s.Equal([]string{"Go", "PostgreSQL"}, remote[0].Skills)
}
