package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type ProfileHandler struct {
	registry *profileUC.Registry
	logger   logger.Logger
}

func NewProfileHandler(registry *profileUC.Registry, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		registry: registry,
		logger:   log,
	}
}

// reconciler returns the caller's reconciler, opening it on first use.
func (h *ProfileHandler) reconciler(c *gin.Context) (*profileUC.Reconciler, bool) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return nil, false
	}
	return h.registry.Open(c.Request.Context(), s), true
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	r, ok := h.reconciler(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ToProfileStateDTO(r.State()))
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	r, ok := h.reconciler(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
		return
	}

	res, err := r.UpdateProfile(c.Request.Context(), req.ToPatch())
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}
