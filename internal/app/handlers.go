package app

import (
	"github.com/block/flight-control/internal/handlers"
	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/server"
)

type Handlers struct {
	Jobs        *handlers.JobsHandler
	Runs        *handlers.RunsHandler
	Workers     *handlers.WorkersHandler
	Credentials *handlers.CredentialsHandler
	Skills      *handlers.SkillsHandler
	Schedules   *handlers.SchedulesHandler
	System      *handlers.SystemHandler
	Workspaces  *handlers.WorkspacesHandler
}

func wireHandlers(serviceset Services) Handlers {
	return Handlers{
		Jobs:        handlers.NewJobsHandler(serviceset.Jobs),
		Runs:        handlers.NewRunsHandler(serviceset.Runs, serviceset.Lifecycle, serviceset.Logs, serviceset.Artifacts),
		Workers:     handlers.NewWorkersHandler(serviceset.Workers, serviceset.Dispatch, serviceset.Lifecycle, serviceset.Logs, serviceset.Artifacts),
		Credentials: handlers.NewCredentialsHandler(serviceset.Credentials),
		Skills:      handlers.NewSkillsHandler(serviceset.Skills),
		Schedules:   handlers.NewSchedulesHandler(serviceset.Schedules),
		System:      handlers.NewSystemHandler(serviceset.Workers, serviceset.Metrics),
		Workspaces:  handlers.NewWorkspacesHandler(serviceset.Workspaces),
	}
}

func wireRouter(log *logger.Logger, serviceset Services, handlerset Handlers) *server.RouterConfig {
	return &server.RouterConfig{
		AuthMiddleware:     middleware.NewAuthMiddleware(log, serviceset.Auth),
		JobsHandler:        handlerset.Jobs,
		RunsHandler:        handlerset.Runs,
		WorkersHandler:     handlerset.Workers,
		CredentialsHandler: handlerset.Credentials,
		SkillsHandler:      handlerset.Skills,
		SchedulesHandler:   handlerset.Schedules,
		SystemHandler:      handlerset.System,
		WorkspacesHandler:  handlerset.Workspaces,
	}
}
