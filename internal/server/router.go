package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/block/flight-control/internal/handlers"
	"github.com/block/flight-control/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware

	JobsHandler        *handlers.JobsHandler
	RunsHandler        *handlers.RunsHandler
	WorkersHandler     *handlers.WorkersHandler
	CredentialsHandler *handlers.CredentialsHandler
	SkillsHandler      *handlers.SkillsHandler
	SchedulesHandler   *handlers.SchedulesHandler
	SystemHandler      *handlers.SystemHandler
	WorkspacesHandler  *handlers.WorkspacesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("flight-control"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Workspace-ID", "X-Requested-With"},
		AllowCredentials: false,
	}))

	api := router.Group("/api/v1")
	api.GET("/health", handlers.HealthCheck)

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/jobs", cfg.JobsHandler.List)
	protected.POST("/jobs", cfg.JobsHandler.Create)
	protected.GET("/jobs/:id", cfg.JobsHandler.Get)
	protected.PUT("/jobs/:id", cfg.JobsHandler.Update)
	protected.DELETE("/jobs/:id", cfg.JobsHandler.Delete)
	protected.POST("/jobs/:id/run", cfg.JobsHandler.Trigger)

	protected.GET("/runs", cfg.RunsHandler.List)
	protected.POST("/runs", cfg.RunsHandler.Create)
	protected.GET("/runs/:id", cfg.RunsHandler.Get)
	protected.POST("/runs/:id/cancel", cfg.RunsHandler.Cancel)
	protected.GET("/runs/:id/logs", cfg.RunsHandler.GetLogs)
	protected.GET("/runs/:id/logs/stream", cfg.RunsHandler.StreamLogs)
	protected.GET("/runs/:id/artifacts", cfg.RunsHandler.ListArtifacts)
	protected.GET("/runs/:id/artifacts/:aid", cfg.RunsHandler.DownloadArtifact)

	protected.POST("/workers/register", cfg.WorkersHandler.Register)
	protected.POST("/workers/heartbeat", cfg.WorkersHandler.Heartbeat)
	protected.POST("/workers/poll", cfg.WorkersHandler.Poll)
	protected.POST("/workers/runs/:run_id/logs", cfg.WorkersHandler.PostLogs)
	protected.POST("/workers/runs/:run_id/artifacts", cfg.WorkersHandler.UploadArtifact)
	protected.POST("/workers/runs/:run_id/complete", cfg.WorkersHandler.Complete)

	protected.GET("/credentials", cfg.CredentialsHandler.List)
	protected.POST("/credentials", cfg.CredentialsHandler.Create)
	protected.PUT("/credentials/:id", cfg.CredentialsHandler.Update)
	protected.DELETE("/credentials/:id", cfg.CredentialsHandler.Delete)

	protected.GET("/skills", cfg.SkillsHandler.List)
	protected.POST("/skills", cfg.SkillsHandler.Upload)
	protected.GET("/skills/:id", cfg.SkillsHandler.Get)
	protected.PUT("/skills/:id", cfg.SkillsHandler.Update)
	protected.DELETE("/skills/:id", cfg.SkillsHandler.Delete)
	protected.GET("/skills/:id/files/*path", cfg.SkillsHandler.DownloadFile)

	protected.GET("/schedules", cfg.SchedulesHandler.List)
	protected.POST("/schedules", cfg.SchedulesHandler.Create)
	protected.PUT("/schedules/:id", cfg.SchedulesHandler.Update)
	protected.DELETE("/schedules/:id", cfg.SchedulesHandler.Delete)

	protected.GET("/system/workers", cfg.SystemHandler.ListWorkers)
	protected.GET("/system/metrics", cfg.SystemHandler.Metrics)

	protected.GET("/workspaces", cfg.WorkspacesHandler.List)
	protected.POST("/workspaces", cfg.AuthMiddleware.RequireAdmin(), cfg.WorkspacesHandler.Create)
	protected.GET("/workspaces/:id/members", cfg.WorkspacesHandler.ListMembers)
	protected.GET("/users/me", cfg.WorkspacesHandler.Me)

	return router
}
