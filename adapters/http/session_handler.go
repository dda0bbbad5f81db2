package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/career-path/internal/application/usecase/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type SessionHandler struct {
	registry *profileUC.Registry
	progress *roadmapUC.ProgressUseCase
	logger   logger.Logger
}

func NewSessionHandler(registry *profileUC.Registry, progress *roadmapUC.ProgressUseCase, log logger.Logger) *SessionHandler {
	return &SessionHandler{registry: registry, progress: progress, logger: log}
}

// SignIn resolves the caller's profile against store and cache.
func (h *SessionHandler) SignIn(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}

	r := h.registry.Open(c.Request.Context(), s)
	c.JSON(http.StatusOK, ToProfileStateDTO(r.State()))
}

// SignOut drops the in-memory state and the profile mirror of the caller.
func (h *SessionHandler) SignOut(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}

	h.registry.Close(c.Request.Context(), s.User.ID)
	h.progress.Forget(s.User.ID)
	h.logger.Info("User signed out", zap.String("user_id", s.User.ID.String()))
	c.Status(http.StatusNoContent)
}
