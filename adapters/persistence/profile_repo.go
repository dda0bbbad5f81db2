package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, logger logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: logger}
}

var profileColumns = []string{
	"id", "email", "name", "skills", "education", "experience", "projects", "interests",
	"career_goal", "level", "is_onboarded", "profile_complete", "last_sign_in", "created_at", "updated_at",
}

func (r *postgresProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("profiles").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build profile query", err)
	}

	p := &profile.Profile{}
	var skills []string
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&skills,
		&p.Education,
		&p.Experience,
		&p.Projects,
		&p.Interests,
		&p.CareerGoal,
		&p.Level,
		&p.IsOnboarded,
		&p.ProfileComplete,
		&p.LastSignIn,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("profile", id.String())
		}
		return nil, unavailable(r.logger, "get profile", err)
	}

	p.Skills = skills
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}

func (r *postgresProfileRepo) Upsert(ctx context.Context, p *profile.Profile) error {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}

	query := `
		INSERT INTO profiles (id, email, name, skills, education, experience, projects, interests,
			career_goal, level, is_onboarded, profile_complete, last_sign_in, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			skills = EXCLUDED.skills,
			education = EXCLUDED.education,
			experience = EXCLUDED.experience,
			projects = EXCLUDED.projects,
			interests = EXCLUDED.interests,
			career_goal = EXCLUDED.career_goal,
			level = EXCLUDED.level,
			is_onboarded = EXCLUDED.is_onboarded,
			profile_complete = EXCLUDED.profile_complete,
			last_sign_in = COALESCE(EXCLUDED.last_sign_in, profiles.last_sign_in),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Email, p.Name, skills, p.Education, p.Experience, p.Projects, p.Interests,
		p.CareerGoal, p.Level, p.IsOnboarded, p.ProfileComplete, p.LastSignIn, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return unavailable(r.logger, "upsert profile", err)
	}
	return nil
}
