package job

import (
	"context"
	"strings"

	"github.com/khoahotran/career-path/internal/domain/profile"
)

type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description,omitempty"`
	Skills      []string `json:"skills"`
}

type Education struct {
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field"`
	Institution string `json:"institution,omitempty"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
}

// Candidate is what gets scored against a listing.
type Candidate struct {
	Skills     []string     `json:"skills"`
	Education  []Education  `json:"education"`
	Experience []Experience `json:"experience"`
}

// CandidateFromProfile uses the free-text education and experience fields of
// a stored profile as one entry each.
func CandidateFromProfile(p *profile.Profile) Candidate {
	c := Candidate{Skills: append([]string(nil), p.Skills...)}
	if f := strings.TrimSpace(p.Education); f != "" {
		c.Education = []Education{{Field: f}}
	}
	if t := strings.TrimSpace(p.Experience); t != "" {
		c.Experience = []Experience{{Title: t}}
	}
	return c
}

type MatchResult struct {
	Score         int      `json:"score"`
	MatchedSkills []string `json:"matched_skills"`
}

type Match struct {
	Listing Listing `json:"job"`
	MatchResult
}

type Filter struct {
	Location string
	Limit    uint64
}

// Catalog is the read-only set of listings used when server-side
// recommendations are unavailable.
type Catalog interface {
	List(ctx context.Context, f Filter) ([]Listing, error)
}
