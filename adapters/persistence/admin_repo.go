package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/logger"
)

type postgresAdminRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresAdminRepo(db *pgxpool.Pool, logger logger.Logger) profile.AdminRepository {
	return &postgresAdminRepo{db: db, logger: logger}
}

func (r *postgresAdminRepo) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admin_users WHERE user_id = $1)`, userID).Scan(&ok)
	if err != nil {
		return false, unavailable(r.logger, "check admin", err)
	}
	return ok, nil
}
