package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/khoahotran/career-path/pkg/logger"
)

type stubAdmins struct {
	ids map[uuid.UUID]bool
	err error
}

func (s stubAdmins) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return s.ids[id], s.err
}

func TestIsAdmin(t *testing.T) {
	admin := uuid.New()
	uc := NewIsAdminUseCase(stubAdmins{ids: map[uuid.UUID]bool{admin: true}}, logger.NewNopLogger())

	assert.True(t, uc.Execute(context.Background(), admin))
	assert.False(t, uc.Execute(context.Background(), uuid.New()))

	failing := NewIsAdminUseCase(stubAdmins{err: errors.New("relation does not exist")}, logger.NewNopLogger())
	assert.False(t, failing.Execute(context.Background(), admin))
}
