package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
)

type ProfileEventType string

const (
	ProfileEventUpdated    ProfileEventType = "profile.updated"
	ProfileEventSyncFailed ProfileEventType = "profile.sync_failed"
)

type ProfileEvent struct {
	Type    ProfileEventType `json:"type"`
	UserID  uuid.UUID        `json:"user_id"`
	Profile *profile.Profile `json:"profile"`
	Reason  string           `json:"reason,omitempty"`
}

type RoadmapEvent struct {
	Type     string           `json:"type"`
	Email    string           `json:"email"`
	Progress roadmap.Progress `json:"progress"`
}

type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, e ProfileEvent) error
	PublishRoadmapEvent(ctx context.Context, e RoadmapEvent) error
}
