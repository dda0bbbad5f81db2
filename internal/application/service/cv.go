package service

import (
	"context"

	"github.com/khoahotran/career-path/internal/domain/job"
)

// CVFields is what the CV parsing service extracts from a document.
type CVFields struct {
	Name       string           `json:"name"`
	Skills     []string         `json:"skills"`
	Education  []job.Education  `json:"education"`
	Experience []job.Experience `json:"experience"`
	Projects   []string         `json:"projects"`
	Interests  []string         `json:"interests"`
	CareerGoal string           `json:"career_goal"`
}

type CVParser interface {
	Parse(ctx context.Context, text string) (*CVFields, error)
}
