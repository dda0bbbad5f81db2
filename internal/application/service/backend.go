package service

import (
	"context"
	"encoding/json"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
)

// BackendSync is the REST service that receives profile and roadmap
// snapshots and computes artifacts. Every failure is reported as
// apperror.ErrRemoteUnavailable.
type BackendSync interface {
	roadmap.Store

	SyncProfile(ctx context.Context, p *profile.Profile) error
	JobRecommendations(ctx context.Context, email string, refresh bool) (json.RawMessage, error)
	SkillsGap(ctx context.Context, email string, refresh bool) (json.RawMessage, error)
}
