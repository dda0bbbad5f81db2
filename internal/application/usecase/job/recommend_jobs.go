package job

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

var tracer = otel.Tracer("job_usecase")

const defaultCatalogLimit = 20

type Source string

const (
	SourceCache   Source = "cache"
	SourceBackend Source = "backend"
	SourceCatalog Source = "catalog"
)

// Recommendations holds either the backend's document or, when the backend
// could not answer, listings from the local catalog ranked by Score.
type Recommendations struct {
	Source  Source          `json:"source"`
	Backend json.RawMessage `json:"recommendations,omitempty"`
	Matches []job.Match     `json:"matches,omitempty"`
}

// Recommender is the subset of the backend used here.
type Recommender interface {
	JobRecommendations(ctx context.Context, email string, refresh bool) (json.RawMessage, error)
	SkillsGap(ctx context.Context, email string, refresh bool) (json.RawMessage, error)
}

type JobUseCase struct {
	backend Recommender
	catalog job.Catalog
	cache   service.LocalCache
	logger  logger.Logger
}

func NewJobUseCase(backend Recommender, catalog job.Catalog, cache service.LocalCache, log logger.Logger) *JobUseCase {
	return &JobUseCase{backend: backend, catalog: catalog, cache: cache, logger: log}
}

// Recommendations reads the cache mirror, then the backend, then falls back
// to ranking the local catalog. force skips and invalidates the mirror.
func (uc *JobUseCase) Recommendations(ctx context.Context, p *profile.Profile, f job.Filter, force bool) (*Recommendations, error) {
	ctx, span := tracer.Start(ctx, "Recommendations")
	defer span.End()

	log := uc.logger.With(zap.String("user_id", p.ID.String()))

	if force {
		uc.invalidate(ctx, p.ID, service.CacheKeyJobRecommendations)
	} else {
		var cached Recommendations
		found, err := uc.cache.Load(ctx, p.ID, service.CacheKeyJobRecommendations, &cached)
		if err != nil {
			log.Warn("Recommendations cache unreadable", zap.Error(err))
		}
		if found {
			cached.Source = SourceCache
			return &cached, nil
		}
	}

	raw, err := uc.backend.JobRecommendations(ctx, p.Email, force)
	if err == nil {
		rec := &Recommendations{Source: SourceBackend, Backend: raw}
		if err := uc.cache.Store(ctx, p.ID, service.CacheKeyJobRecommendations, rec); err != nil {
			log.Warn("Failed to mirror recommendations", zap.Error(err))
		}
		return rec, nil
	}
	span.RecordError(err)
	log.Warn("Backend recommendations unavailable, ranking local catalog", zap.Error(err))

	if f.Limit == 0 {
		f.Limit = defaultCatalogLimit
	}
	listings, cerr := uc.catalog.List(ctx, f)
	if cerr != nil {
		log.Error("Job catalog unavailable", cerr)
		return nil, apperror.NewRemoteUnavailable("job recommendations", "backend and catalog both failed", errors.Join(err, cerr))
	}
	return &Recommendations{
		Source:  SourceCatalog,
		Matches: job.Rank(job.CandidateFromProfile(p), listings),
	}, nil
}

// SkillsGap mirrors the backend's skills gap analysis in its own cache entry.
func (uc *JobUseCase) SkillsGap(ctx context.Context, userID uuid.UUID, email string, force bool) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "SkillsGap")
	defer span.End()

	if force {
		uc.invalidate(ctx, userID, service.CacheKeySkillsGap)
	} else {
		var cached json.RawMessage
		found, err := uc.cache.Load(ctx, userID, service.CacheKeySkillsGap, &cached)
		if err != nil {
			uc.logger.Warn("Skills gap cache unreadable", zap.String("user_id", userID.String()), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	raw, err := uc.backend.SkillsGap(ctx, email, force)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := uc.cache.Store(ctx, userID, service.CacheKeySkillsGap, raw); err != nil {
		uc.logger.Warn("Failed to mirror skills gap", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return raw, nil
}

// ScoreListings ranks caller-supplied listings against a profile.
func (uc *JobUseCase) ScoreListings(p *profile.Profile, listings []job.Listing) []job.Match {
	return job.Rank(job.CandidateFromProfile(p), listings)
}

func (uc *JobUseCase) invalidate(ctx context.Context, userID uuid.UUID, key service.CacheKey) {
	if err := uc.cache.Delete(ctx, userID, key); err != nil {
		uc.logger.Warn("Failed to invalidate cache entry", zap.String("user_id", userID.String()), zap.String("key", string(key)), zap.Error(err))
	}
}
