package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	jobUC "github.com/khoahotran/career-path/internal/application/usecase/job"
	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/internal/domain/job"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type JobHandler struct {
	jobs     *jobUC.JobUseCase
	registry *profileUC.Registry
	logger   logger.Logger
}

func NewJobHandler(jobs *jobUC.JobUseCase, registry *profileUC.Registry, log logger.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, registry: registry, logger: log}
}

// callerProfile falls back to a stub built from the session while the
// profile is not resolved yet.
func (h *JobHandler) callerProfile(c *gin.Context) (*profile.Profile, bool) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return nil, false
	}
	if p := h.registry.Open(c.Request.Context(), s).State().Profile; p != nil {
		return p, true
	}
	return profile.Stub(s), true
}

func (h *JobHandler) Recommendations(c *gin.Context) {
	p, ok := h.callerProfile(c)
	if !ok {
		return
	}

	force, _ := strconv.ParseBool(c.Query("refresh"))
	f := job.Filter{Location: c.Query("location")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.Error(apperror.NewInvalidInput("limit must be a positive integer", err))
			return
		}
		f.Limit = limit
	}

	rec, err := h.jobs.Recommendations(c.Request.Context(), p, f, force)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *JobHandler) ScoreListings(c *gin.Context) {
	p, ok := h.callerProfile(c)
	if !ok {
		return
	}

	var req ScoreListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for listing scores", err))
		return
	}
	c.JSON(http.StatusOK, ScoreListingsResponse{Matches: h.jobs.ScoreListings(p, req.Listings)})
}

func (h *JobHandler) SkillsGap(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}

	force, _ := strconv.ParseBool(c.Query("refresh"))
	gap, err := h.jobs.SkillsGap(c.Request.Context(), s.User.ID, s.User.Email, force)
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", gap)
}
