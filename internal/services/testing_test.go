package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&types.Workspace{},
		&types.User{},
		&types.WorkspaceMember{},
		&types.ApiKey{},
		&types.Credential{},
		&types.JobDefinition{},
		&types.JobRun{},
		&types.Worker{},
		&types.Schedule{},
		&types.JobLog{},
		&types.Artifact{},
		&types.Skill{},
		&types.SkillFile{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type testRepos struct {
	workspaces  repos.WorkspaceRepo
	users       repos.UserRepo
	apiKeys     repos.ApiKeyRepo
	credentials repos.CredentialRepo
	jobs        repos.JobDefinitionRepo
	runs        repos.JobRunRepo
	workers     repos.WorkerRepo
	schedules   repos.ScheduleRepo
	logs        repos.JobLogRepo
	artifacts   repos.ArtifactRepo
	skills      repos.SkillRepo
}

func newTestRepos(db *gorm.DB) testRepos {
	log := logger.NewNop()
	return testRepos{
		workspaces:  repos.NewWorkspaceRepo(db, log),
		users:       repos.NewUserRepo(db, log),
		apiKeys:     repos.NewApiKeyRepo(db, log),
		credentials: repos.NewCredentialRepo(db, log),
		jobs:        repos.NewJobDefinitionRepo(db, log),
		runs:        repos.NewJobRunRepo(db, log),
		workers:     repos.NewWorkerRepo(db, log),
		schedules:   repos.NewScheduleRepo(db, log),
		logs:        repos.NewJobLogRepo(db, log),
		artifacts:   repos.NewArtifactRepo(db, log),
		skills:      repos.NewSkillRepo(db, log),
	}
}

type noopWebhooks struct{}

func (noopWebhooks) Fire(run *types.JobRun) {}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}
