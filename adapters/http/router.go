package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khoahotran/career-path/pkg/auth"
	"github.com/khoahotran/career-path/pkg/logger"
)

type Handlers struct {
	Session *SessionHandler
	Profile *ProfileHandler
	Roadmap *RoadmapHandler
	Job     *JobHandler
	CV      *CVHandler
	Admin   *AdminHandler
}

func NewRouter(serviceName string, h Handlers, jwtSvc *auth.JWTService, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), ErrorMiddleware(log))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		private := api.Group("/")
		private.Use(SessionMiddleware(jwtSvc, log))
		{
			private.POST("/session", h.Session.SignIn)
			private.DELETE("/session", h.Session.SignOut)

			private.GET("/profile", h.Profile.GetProfile)
			private.PUT("/profile", h.Profile.UpdateProfile)

			roadmap := private.Group("/roadmap")
			{
				roadmap.GET("", h.Roadmap.GetRoadmap)
				roadmap.POST("/generate", h.Roadmap.GenerateRoadmap)
				roadmap.PATCH("/milestones/:m", h.Roadmap.SetMilestoneStatus)
				roadmap.PATCH("/milestones/:m/tasks/:t", h.Roadmap.SetTaskStatus)
			}

			private.GET("/jobs/recommendations", h.Job.Recommendations)
			private.POST("/jobs/score", h.Job.ScoreListings)
			private.GET("/skills-gap", h.Job.SkillsGap)

			private.POST("/cv/analyze", h.CV.AnalyzeCV)

			private.GET("/admin/me", h.Admin.Me)
		}
	}

	return router
}
