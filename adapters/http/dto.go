package http

import (
	"time"

	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
)

// Profile DTOs

type ProfileStateDTO struct {
	Profile    *profile.Profile `json:"profile"`
	Completion int              `json:"completion"`
	Loading    bool             `json:"loading"`
	Degraded   bool             `json:"degraded"`
	Error      string           `json:"error,omitempty"`
	ExpiresAt  *time.Time       `json:"session_expires_at,omitempty"`
}

func ToProfileStateDTO(s profileUC.State) ProfileStateDTO {
	dto := ProfileStateDTO{
		Profile:  s.Profile,
		Loading:  s.Loading,
		Degraded: s.Degraded,
	}
	if s.Profile != nil {
		dto.Completion = s.Profile.Completion()
	}
	if s.Err != nil {
		dto.Error = s.Err.Error()
	}
	if s.Session != nil && !s.Session.ExpiresAt.IsZero() {
		exp := s.Session.ExpiresAt
		dto.ExpiresAt = &exp
	}
	return dto
}

// UpdateProfileRequest mirrors profile.Patch; absent fields stay untouched.
type UpdateProfileRequest struct {
	Name       *string   `json:"name"`
	Skills     *[]string `json:"skills"`
	Education  *string   `json:"education"`
	Experience *string   `json:"experience"`
	Projects   *string   `json:"projects"`
	Interests  *string   `json:"interests"`
	CareerGoal *string   `json:"career_goal"`
	Level      *string   `json:"level"`
}

func (req *UpdateProfileRequest) ToPatch() profile.Patch {
	return profile.Patch{
		Name:       req.Name,
		Skills:     req.Skills,
		Education:  req.Education,
		Experience: req.Experience,
		Projects:   req.Projects,
		Interests:  req.Interests,
		CareerGoal: req.CareerGoal,
		Level:      req.Level,
	}
}

// Roadmap DTOs

type GenerateRoadmapRequest struct {
	CareerGoal      string   `json:"career_goal"`
	Skills          []string `json:"skills"`
	ExperienceLevel string   `json:"experience_level"`
}

type SetStatusRequest struct {
	Status roadmap.Status `json:"status" binding:"required"`
}

// Job DTOs

type ScoreListingsRequest struct {
	Listings []job.Listing `json:"listings" binding:"required"`
}

type ScoreListingsResponse struct {
	Matches []job.Match `json:"matches"`
}

// CV DTOs

type AnalyzeCVRequest struct {
	Text string `json:"text" binding:"required"`
}
