package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultLevel = "Beginner"

var (
	ErrEmptySkill   = errors.New("skills must not contain empty entries")
	ErrInvalidLevel = errors.New("level must be Beginner, Intermediate or Advanced")
	ErrIDMismatch   = errors.New("profile id does not match session user")
)

var validLevels = map[string]bool{
	"Beginner":     true,
	"Intermediate": true,
	"Advanced":     true,
}

// SessionUser is the identity the provider attached to a session.
type SessionUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
}

type Session struct {
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// DisplayName falls back to the email local part, then to fallback.
func (s *Session) DisplayName(fallback string) string {
	if name := strings.TrimSpace(s.User.FullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(s.User.Email, "@"); ok && local != "" {
		return local
	}
	if s.User.Email != "" {
		return s.User.Email
	}
	return fallback
}

type Profile struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Skills          []string   `json:"skills"`
	Education       string     `json:"education"`
	Experience      string     `json:"experience"`
	Projects        string     `json:"projects"`
	Interests       string     `json:"interests"`
	CareerGoal      string     `json:"career_goal"`
	Level           string     `json:"level"`
	IsOnboarded     bool       `json:"is_onboarded"`
	ProfileComplete bool       `json:"profile_complete"`
	LastSignIn      *time.Time `json:"last_sign_in,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewFromSession synthesises the minimal profile of a first sign-in.
func NewFromSession(s *Session, now time.Time) *Profile {
	return &Profile{
		ID:         s.User.ID,
		Email:      s.User.Email,
		Name:       s.DisplayName("New User"),
		Skills:     []string{},
		Level:      DefaultLevel,
		LastSignIn: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Stub is the baseline used by an update when no profile could be read.
func Stub(s *Session) *Profile {
	return &Profile{
		ID:     s.User.ID,
		Email:  s.User.Email,
		Name:   s.DisplayName("User"),
		Skills: []string{},
		Level:  DefaultLevel,
	}
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = append([]string(nil), p.Skills...)
	if p.LastSignIn != nil {
		t := *p.LastSignIn
		c.LastSignIn = &t
	}
	return &c
}

// BelongsTo reports whether p may be treated as the profile of s.
func (p *Profile) BelongsTo(s *Session) bool {
	return p != nil && s != nil && p.ID == s.User.ID
}

// FillFromSession sets email and name from session metadata when missing.
func (p *Profile) FillFromSession(s *Session) {
	if p.Email == "" {
		p.Email = s.User.Email
	}
	if p.Name == "" {
		p.Name = s.DisplayName("User")
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Level == "" {
		p.Level = DefaultLevel
	}
}

// Completion is the share of key profile fields that are filled, 0..100.
func (p *Profile) Completion() int {
	if p == nil {
		return 0
	}
	checks := []bool{
		strings.TrimSpace(p.Name) != "",
		len(p.Skills) > 0,
		strings.TrimSpace(p.Education) != "",
		strings.TrimSpace(p.Experience) != "",
		strings.TrimSpace(p.CareerGoal) != "",
		strings.TrimSpace(p.Projects) != "",
		strings.TrimSpace(p.Interests) != "",
	}
	done := 0
	for _, ok := range checks {
		if ok {
			done++
		}
	}
	return (done*100 + len(checks)/2) / len(checks)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name       *string   `json:"name,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Skills     *[]string `json:"skills,omitempty"`
	Education  *string   `json:"education,omitempty"`
	Experience *string   `json:"experience,omitempty"`
	Projects   *string   `json:"projects,omitempty"`
	Interests  *string   `json:"interests,omitempty"`
	CareerGoal *string   `json:"career_goal,omitempty"`
	Level      *string   `json:"level,omitempty"`
}

func (pt Patch) Validate() error {
	if pt.Skills != nil {
		for _, s := range *pt.Skills {
			if strings.TrimSpace(s) == "" {
				return ErrEmptySkill
			}
		}
	}
	if pt.Level != nil && *pt.Level != "" && !validLevels[*pt.Level] {
		return ErrInvalidLevel
	}
	return nil
}

// Onboards reports whether applying pt completes onboarding.
func (pt Patch) Onboards() bool {
	return pt.Skills != nil ||
		(pt.CareerGoal != nil && strings.TrimSpace(*pt.CareerGoal) != "") ||
		(pt.Education != nil && strings.TrimSpace(*pt.Education) != "")
}

// Apply merges pt onto a copy of base and returns it. Identity and
// bookkeeping fields are the caller's concern.
func (pt Patch) Apply(base *Profile) *Profile {
	p := base.Clone()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, pt.Name)
	set(&p.Email, pt.Email)
	set(&p.Education, pt.Education)
	set(&p.Experience, pt.Experience)
	set(&p.Projects, pt.Projects)
	set(&p.Interests, pt.Interests)
	set(&p.CareerGoal, pt.CareerGoal)
	set(&p.Level, pt.Level)
	if pt.Skills != nil {
		p.Skills = NormalizeSkills(*pt.Skills)
	}
	return p
}

// NormalizeSkills trims entries and drops case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Repository is the remote relational store. GetByID returns an error
// matching apperror.ErrNotFound when the row is absent and
// apperror.ErrRemoteUnavailable for anything else.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

type AdminRepository interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}
