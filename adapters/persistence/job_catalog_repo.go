package persistence

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type postgresJobCatalog struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresJobCatalog(db *pgxpool.Pool, logger logger.Logger) job.Catalog {
	return &postgresJobCatalog{db: db, logger: logger}
}

func (r *postgresJobCatalog) List(ctx context.Context, f job.Filter) ([]job.Listing, error) {
	builder := psql.Select("id", "title", "company", "location", "description", "skills").
		From("job_listings").
		OrderBy("posted_at DESC", "id")
	if f.Location != "" {
		builder = builder.Where(sq.ILike{"location": "%" + f.Location + "%"})
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build job catalog query", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable(r.logger, "list job listings", err)
	}

	listings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (job.Listing, error) {
		var l job.Listing
		err := row.Scan(&l.ID, &l.Title, &l.Company, &l.Location, &l.Description, &l.Skills)
		return l, err
	})
	if err != nil {
		return nil, unavailable(r.logger, "scan job listings", err)
	}
	return listings, nil
}
