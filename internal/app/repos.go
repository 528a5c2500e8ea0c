package app

import (
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
)

type Repos struct {
	Workspaces  repos.WorkspaceRepo
	Users       repos.UserRepo
	ApiKeys     repos.ApiKeyRepo
	Credentials repos.CredentialRepo
	Jobs        repos.JobDefinitionRepo
	Runs        repos.JobRunRepo
	Workers     repos.WorkerRepo
	Schedules   repos.ScheduleRepo
	Logs        repos.JobLogRepo
	Artifacts   repos.ArtifactRepo
	Skills      repos.SkillRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Workspaces:  repos.NewWorkspaceRepo(db, log),
		Users:       repos.NewUserRepo(db, log),
		ApiKeys:     repos.NewApiKeyRepo(db, log),
		Credentials: repos.NewCredentialRepo(db, log),
		Jobs:        repos.NewJobDefinitionRepo(db, log),
		Runs:        repos.NewJobRunRepo(db, log),
		Workers:     repos.NewWorkerRepo(db, log),
		Schedules:   repos.NewScheduleRepo(db, log),
		Logs:        repos.NewJobLogRepo(db, log),
		Artifacts:   repos.NewArtifactRepo(db, log),
		Skills:      repos.NewSkillRepo(db, log),
	}
}
