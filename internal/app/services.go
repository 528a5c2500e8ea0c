package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/secrets"
	"github.com/block/flight-control/internal/services"
	"github.com/block/flight-control/internal/sse"
	"github.com/block/flight-control/internal/storage"
)

type Services struct {
	Auth        services.AuthService
	Workspaces  services.WorkspaceService
	Credentials services.CredentialService
	Jobs        services.JobService
	Runs        services.RunService
	Workers     services.WorkerService
	Dispatch    services.DispatchService
	Lifecycle   services.LifecycleService
	Logs        services.LogService
	Artifacts   services.ArtifactService
	Skills      services.SkillService
	Schedules   services.ScheduleService
	Metrics     services.MetricsService
	Webhooks    services.WebhookNotifier

	Scheduler *services.Scheduler
	Reaper    *services.Reaper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, hub *sse.Hub) (Services, error) {
	box, err := secrets.NewBox(cfg.MasterKey)
	if err != nil {
		return Services{}, fmt.Errorf("init credential box: %w", err)
	}

	artifactStore := storage.NewLocalStore(cfg.ArtifactStoragePath)
	skillStore := storage.NewLocalStore(cfg.SkillStoragePath)

	webhooks := services.NewWebhookNotifier(log)
	artifacts := services.NewArtifactService(db, log, reposet.Artifacts, artifactStore)
	logs := services.NewLogService(db, log, reposet.Logs, reposet.Runs, artifacts, hub)
	jobs := services.NewJobService(db, log, reposet.Jobs, reposet.Runs)

	return Services{
		Auth:        services.NewAuthService(db, log, reposet.Users, reposet.ApiKeys, reposet.Workspaces, cfg.DefaultAdminKey),
		Workspaces:  services.NewWorkspaceService(db, log, reposet.Workspaces, reposet.Users),
		Credentials: services.NewCredentialService(db, log, reposet.Credentials, box),
		Jobs:        jobs,
		Runs:        services.NewRunService(db, log, reposet.Runs),
		Workers:     services.NewWorkerService(db, log, reposet.Workers, reposet.Runs, cfg.HeartbeatTimeout),
		Dispatch:    services.NewDispatchService(db, log, reposet.Runs, reposet.Workers, reposet.Credentials, reposet.Skills, box),
		Lifecycle:   services.NewLifecycleService(db, log, reposet.Runs, reposet.Workers, webhooks),
		Logs:        logs,
		Artifacts:   artifacts,
		Skills:      services.NewSkillService(db, log, reposet.Skills, skillStore),
		Schedules:   services.NewScheduleService(db, log, reposet.Schedules),
		Metrics:     services.NewMetricsService(db, log, reposet.Runs, reposet.Workers),
		Webhooks:    webhooks,
		Scheduler:   services.NewScheduler(db, log, reposet.Schedules, jobs),
		Reaper:      services.NewReaper(db, log, reposet.Workers, cfg.HeartbeatTimeout),
	}, nil
}
