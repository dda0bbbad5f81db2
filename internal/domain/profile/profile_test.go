package profile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func testSession() *Session {
	return &Session{User: SessionUser{ID: uuid.New(), Email: "grace@example.com"}}
}

func TestSession_DisplayName(t *testing.T) {
	s := testSession()
	assert.Equal(t, "grace", s.DisplayName("x"))

	s.User.FullName = "Grace Hopper"
	assert.Equal(t, "Grace Hopper", s.DisplayName("x"))

	empty := &Session{}
	assert.Equal(t, "x", empty.DisplayName("x"))
}

func TestNewFromSession(t *testing.T) {
	s := testSession()
	now := time.Now().UTC()

	p := NewFromSession(s, now)

	assert.Equal(t, s.User.ID, p.ID)
	assert.Equal(t, "grace", p.Name)
	assert.False(t, p.IsOnboarded)
	assert.False(t, p.ProfileComplete)
	assert.Equal(t, []string{}, p.Skills)
	assert.Equal(t, DefaultLevel, p.Level)
}

func TestPatch_ApplyLeavesBaseUntouched(t *testing.T) {
	base := &Profile{ID: uuid.New(), Name: "a", Skills: []string{"Go"}}
	skills := []string{" Python ", "python", "SQL"}

	out := Patch{Name: strPtr("b"), Skills: &skills}.Apply(base)

	assert.Equal(t, "a", base.Name)
	assert.Equal(t, []string{"Go"}, base.Skills)
	assert.Equal(t, "b", out.Name)
	assert.Equal(t, []string{"Python", "SQL"}, out.Skills)
}

func TestPatch_Onboards(t *testing.T) {
	empty := []string{}
	cases := []struct {
		name  string
		patch Patch
		want  bool
	}{
		{"nothing", Patch{}, false},
		{"name only", Patch{Name: strPtr("x")}, false},
		{"skills", Patch{Skills: &empty}, true},
		{"goal", Patch{CareerGoal: strPtr("SRE")}, true},
		{"blank goal", Patch{CareerGoal: strPtr("  ")}, false},
		{"education", Patch{Education: strPtr("BSc")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.patch.Onboards())
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	bad := []string{"Go", " "}
	assert.ErrorIs(t, Patch{Skills: &bad}.Validate(), ErrEmptySkill)
	assert.ErrorIs(t, Patch{Level: strPtr("Guru")}.Validate(), ErrInvalidLevel)
	assert.NoError(t, Patch{Level: strPtr("Advanced")}.Validate())
}

func TestProfile_Completion(t *testing.T) {
	assert.Equal(t, 0, (*Profile)(nil).Completion())

	p := &Profile{Name: "a", Skills: []string{"Go"}, CareerGoal: "SRE"}
	assert.Equal(t, 43, p.Completion())
}

func TestProfile_FillFromSession(t *testing.T) {
	s := testSession()
	p := &Profile{ID: s.User.ID}

	p.FillFromSession(s)

	assert.Equal(t, "grace@example.com", p.Email)
	assert.Equal(t, "grace", p.Name)
	assert.Equal(t, DefaultLevel, p.Level)
	assert.True(t, p.BelongsTo(s))
}
