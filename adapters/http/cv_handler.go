package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cvUC "github.com/khoahotran/career-path/internal/application/usecase/cv"
	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type CVHandler struct {
	analyze  *cvUC.AnalyzeCVUseCase
	registry *profileUC.Registry
	logger   logger.Logger
}

func NewCVHandler(analyze *cvUC.AnalyzeCVUseCase, registry *profileUC.Registry, log logger.Logger) *CVHandler {
	return &CVHandler{analyze: analyze, registry: registry, logger: log}
}

func (h *CVHandler) AnalyzeCV(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}
	if h.analyze == nil {
		c.Error(apperror.NewRemoteUnavailable("CV parser", "not configured", nil))
		return
	}

	var req AnalyzeCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for CV analysis", err))
		return
	}

	out, err := h.analyze.Execute(c.Request.Context(), h.registry.Open(c.Request.Context(), s), cvUC.AnalyzeCVInput{Text: req.Text})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}
