package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/career-path/internal/application/usecase/roadmap"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

type RoadmapHandler struct {
	progress *roadmapUC.ProgressUseCase
	registry *profileUC.Registry
	logger   logger.Logger
}

func NewRoadmapHandler(progress *roadmapUC.ProgressUseCase, registry *profileUC.Registry, log logger.Logger) *RoadmapHandler {
	return &RoadmapHandler{progress: progress, registry: registry, logger: log}
}

func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}

	force, _ := strconv.ParseBool(c.Query("refresh"))
	r, err := h.progress.Load(c.Request.Context(), s.User.ID, s.User.Email, force)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GenerateRoadmap asks the backend for a fresh roadmap. Fields missing from
// the body are taken from the caller's profile.
func (h *RoadmapHandler) GenerateRoadmap(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}

	var req GenerateRoadmapRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperror.NewInvalidInput("invalid JSON body for roadmap generation", err))
			return
		}
	}

	if p := h.registry.Open(c.Request.Context(), s).State().Profile; p != nil {
		if strings.TrimSpace(req.CareerGoal) == "" {
			req.CareerGoal = p.CareerGoal
		}
		if len(req.Skills) == 0 {
			req.Skills = p.Skills
		}
		if req.ExperienceLevel == "" {
			req.ExperienceLevel = p.Level
		}
	}
	if strings.TrimSpace(req.CareerGoal) == "" {
		c.Error(apperror.NewInvalidInput("a career goal is required to generate a roadmap", nil))
		return
	}
	if req.ExperienceLevel == "" {
		req.ExperienceLevel = profile.DefaultLevel
	}

	r, err := h.progress.Generate(c.Request.Context(), s.User.ID, roadmap.GenerateRequest{
		Email:           s.User.Email,
		CareerGoal:      req.CareerGoal,
		Skills:          req.Skills,
		ExperienceLevel: req.ExperienceLevel,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// SetMilestoneStatus accepts either the milestone index or its stable id.
func (h *RoadmapHandler) SetMilestoneStatus(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for status update", err))
		return
	}

	ctx := c.Request.Context()
	current, err := h.progress.Load(ctx, s.User.ID, s.User.Email, false)
	if err != nil {
		c.Error(err)
		return
	}
	mIdx, ok := milestoneIndex(current, c.Param("m"))
	if !ok {
		c.Error(apperror.NewNotFound("milestone", c.Param("m")))
		return
	}

	r, err := h.progress.SetMilestoneStatus(ctx, s.User.ID, s.User.Email, mIdx, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// SetTaskStatus accepts indices or stable ids for both path segments. A task
// id alone identifies its milestone.
func (h *RoadmapHandler) SetTaskStatus(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for status update", err))
		return
	}

	ctx := c.Request.Context()
	current, err := h.progress.Load(ctx, s.User.ID, s.User.Email, false)
	if err != nil {
		c.Error(err)
		return
	}

	mParam, tParam := c.Param("m"), c.Param("t")
	var mIdx, tIdx int
	if n, err := strconv.Atoi(tParam); err == nil {
		tIdx = n
		if mIdx, ok = milestoneIndex(current, mParam); !ok {
			c.Error(apperror.NewNotFound("milestone", mParam))
			return
		}
	} else if mIdx, tIdx, ok = current.Locate(tParam); !ok {
		c.Error(apperror.NewNotFound("task", tParam))
		return
	}

	r, err := h.progress.SetTaskStatus(ctx, s.User.ID, s.User.Email, mIdx, tIdx, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func milestoneIndex(r *roadmap.Roadmap, param string) (int, bool) {
	if n, err := strconv.Atoi(param); err == nil {
		return n, true
	}
	return r.MilestoneIndex(param)
}
