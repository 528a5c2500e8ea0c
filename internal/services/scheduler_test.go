package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

func TestComputeNextRun(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	next, err := ComputeNextRun("*/1 * * * *", base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC), next)

	next, err = ComputeNextRun("0 9 * * *", base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestValidateCronRejectsGarbage(t *testing.T) {
	require.ErrorIs(t, ValidateCron("not a cron"), ErrInvalidCron)
	require.ErrorIs(t, ValidateCron("61 * * * *"), ErrInvalidCron)
	require.NoError(t, ValidateCron("*/5 * * * *"))
}

func TestScheduleCreateRejectsInvalidCron(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	schedules := NewScheduleService(db, logger.NewNop(), r.schedules)
	ctx := context.Background()

	job, err := r.jobs.Create(ctx, nil, &types.JobDefinition{
		WorkspaceID: "default", Name: "j", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	_, err = schedules.Create(ctx, ScheduleCreateInput{
		JobDefinitionID: job.ID,
		CronExpression:  "banana",
	}, "default")
	require.ErrorIs(t, err, ErrInvalidCron)
}

func TestSchedulerTickFiresDueSchedule(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	jobs := NewJobService(db, logger.NewNop(), r.jobs, r.runs)
	scheduler := NewScheduler(db, logger.NewNop(), r.schedules, jobs)
	ctx := context.Background()

	job, err := r.jobs.Create(ctx, nil, &types.JobDefinition{
		WorkspaceID: "default", Name: "nightly", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Second)
	schedule, err := r.schedules.Create(ctx, nil, &types.Schedule{
		WorkspaceID:     "default",
		JobDefinitionID: job.ID,
		CronExpression:  "*/1 * * * *",
		Enabled:         true,
		NextRunAt:       &past,
	})
	require.NoError(t, err)

	tickAt := time.Now().UTC()
	require.NoError(t, scheduler.Tick(ctx))

	runs, err := r.runs.ListByWorkspace(ctx, nil, "default", repos.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, types.RunStatusQueued, runs[0].Status)
	require.Equal(t, job.ID, *runs[0].JobDefinitionID)

	after, err := r.schedules.GetByID(ctx, nil, schedule.ID, "default")
	require.NoError(t, err)
	require.NotNil(t, after.LastRunID)
	require.Equal(t, runs[0].ID, *after.LastRunID)
	require.NotNil(t, after.LastRunAt)
	require.NotNil(t, after.NextRunAt)
	require.True(t, after.NextRunAt.After(tickAt), "next_run_at must advance past the tick")
}

func TestSchedulerAdvancesOnTriggerFailure(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	jobs := NewJobService(db, logger.NewNop(), r.jobs, r.runs)
	scheduler := NewScheduler(db, logger.NewNop(), r.schedules, jobs)
	ctx := context.Background()

	// Schedule pointing at a job that does not exist: the trigger fails but
	// next_run_at must still advance.
	past := time.Now().UTC().Add(-time.Second)
	schedule, err := r.schedules.Create(ctx, nil, &types.Schedule{
		WorkspaceID:     "default",
		JobDefinitionID: newUUID(t),
		CronExpression:  "*/1 * * * *",
		Enabled:         true,
		NextRunAt:       &past,
	})
	require.NoError(t, err)

	tickAt := time.Now().UTC()
	require.NoError(t, scheduler.Tick(ctx))

	after, err := r.schedules.GetByID(ctx, nil, schedule.ID, "default")
	require.NoError(t, err)
	require.NotNil(t, after.NextRunAt)
	require.True(t, after.NextRunAt.After(tickAt))
	require.Nil(t, after.LastRunID)

	runs, err := r.runs.ListByWorkspace(ctx, nil, "default", repos.RunFilter{})
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestScheduledRunSnapshotsLabelsAtTriggerTime(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	jobs := NewJobService(db, logger.NewNop(), r.jobs, r.runs)
	ctx := context.Background()

	job, err := r.jobs.Create(ctx, nil, &types.JobDefinition{
		WorkspaceID: "default", Name: "j", TaskPrompt: "p", AgentType: "goose",
		Labels: map[string]interface{}{"gpu": "true"},
	})
	require.NoError(t, err)

	run, err := jobs.TriggerRun(ctx, nil, job.ID, "default")
	require.NoError(t, err)
	require.Equal(t, "true", run.RequiredLabels["gpu"])

	// Editing the job afterwards leaves the queued run's routing untouched.
	job.Labels = map[string]interface{}{"gpu": "false"}
	require.NoError(t, r.jobs.Save(ctx, nil, job))

	reloaded, err := r.runs.GetByID(ctx, nil, run.ID, "")
	require.NoError(t, err)
	require.Equal(t, "true", reloaded.RequiredLabels["gpu"])
}
