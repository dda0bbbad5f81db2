package persistence

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

const pgUndefinedTable = "42P01"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func NewPostgresPool(ctx context.Context, cfg config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("do not create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	log.Info("Connect PostgreSQL successfully.")
	return pool, nil
}

// unavailable wraps a driver error. Every failure other than a missing row
// means the store could not answer.
func unavailable(log logger.Logger, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUndefinedTable {
			log.Warn("Table missing, run migrations", zap.String("op", op), zap.String("table", pgErr.TableName))
		}
		return apperror.NewRemoteUnavailable("postgres", fmt.Sprintf("%s: %s (%s)", op, pgErr.Message, pgErr.Code), err)
	}
	return apperror.NewRemoteUnavailable("postgres", op, err)
}
