package service

import (
	"context"

	"github.com/google/uuid"
)

type CacheKey string

const (
	CacheKeyProfile            CacheKey = "profile"
	CacheKeyRoadmap            CacheKey = "roadmap"
	CacheKeyJobRecommendations CacheKey = "job_recommendations"
	CacheKeySkillsGap          CacheKey = "skills_gap"
)

// LocalCache mirrors snapshots per user. Load reports found=false for a miss
// and for an entry that could not be decoded; corrupt entries are removed.
type LocalCache interface {
	Load(ctx context.Context, userID uuid.UUID, key CacheKey, dst any) (found bool, err error)
	Store(ctx context.Context, userID uuid.UUID, key CacheKey, value any) error
	Delete(ctx context.Context, userID uuid.UUID, keys ...CacheKey) error
}
