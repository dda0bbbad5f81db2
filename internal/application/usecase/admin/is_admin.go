package admin

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/logger"
)

type IsAdminUseCase struct {
	repo   profile.AdminRepository
	logger logger.Logger
}

func NewIsAdminUseCase(repo profile.AdminRepository, log logger.Logger) *IsAdminUseCase {
	return &IsAdminUseCase{repo: repo, logger: log}
}

// Execute reports whether the user is listed in admin_users. A lookup
// failure is logged and answered with false.
func (uc *IsAdminUseCase) Execute(ctx context.Context, userID uuid.UUID) bool {
	ok, err := uc.repo.Exists(ctx, userID)
	if err != nil {
		uc.logger.Warn("Admin lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return false
	}
	return ok
}
