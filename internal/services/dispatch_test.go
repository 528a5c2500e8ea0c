package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/secrets"
	"github.com/block/flight-control/internal/types"
)

func TestLabelsMatch(t *testing.T) {
	cases := []struct {
		name     string
		required datatypes.JSONMap
		worker   datatypes.JSONMap
		want     bool
	}{
		{name: "nil_required_matches_anything", required: nil, worker: nil, want: true},
		{name: "empty_required_matches_anything", required: datatypes.JSONMap{}, worker: datatypes.JSONMap{"gpu": "true"}, want: true},
		{name: "exact_match", required: datatypes.JSONMap{"gpu": "true"}, worker: datatypes.JSONMap{"gpu": "true"}, want: true},
		{name: "value_mismatch", required: datatypes.JSONMap{"gpu": "true"}, worker: datatypes.JSONMap{"gpu": "false"}, want: false},
		{name: "missing_key", required: datatypes.JSONMap{"tpu": "true"}, worker: datatypes.JSONMap{"gpu": "true"}, want: false},
		{name: "required_but_no_worker_labels", required: datatypes.JSONMap{"gpu": "true"}, worker: nil, want: false},
		{name: "subset_of_worker_labels", required: datatypes.JSONMap{"gpu": "true"}, worker: datatypes.JSONMap{"gpu": "true", "zone": "us-east"}, want: true},
		{name: "multiple_required_all_present", required: datatypes.JSONMap{"gpu": "true", "zone": "us-east"}, worker: datatypes.JSONMap{"gpu": "true", "zone": "us-east"}, want: true},
		{name: "multiple_required_one_missing", required: datatypes.JSONMap{"gpu": "true", "zone": "us-east"}, worker: datatypes.JSONMap{"gpu": "true"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := labelsMatch(tc.required, tc.worker); got != tc.want {
				t.Fatalf("labelsMatch(%v, %v)=%v, want %v", tc.required, tc.worker, got, tc.want)
			}
		})
	}
}

func TestPollAssignsOldestEligibleRun(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, err := secrets.NewBox("")
	require.NoError(t, err)
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)

	older, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "older", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)
	// Force distinct created_at ordering.
	require.NoError(t, r.runs.UpdateFields(ctx, nil, older.ID, map[string]interface{}{
		"created_at": time.Now().UTC().Add(-time.Minute),
	}))
	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "newer", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	require.Equal(t, older.ID, envelope.RunID)

	claimed, err := r.runs.GetByID(ctx, nil, older.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.RunStatusAssigned, claimed.Status)
	require.NotNil(t, claimed.WorkerID)
	require.Equal(t, worker.ID, *claimed.WorkerID)
	require.NotNil(t, claimed.StartedAt)

	busy, err := r.workers.GetByID(ctx, nil, worker.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.WorkerStatusBusy, busy.Status)
	require.NotNil(t, busy.CurrentRunID)
	require.Equal(t, older.ID, *busy.CurrentRunID)
}

func TestPollAtMostOneDispatchPerRun(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	w1, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)
	w2, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w2"})
	require.NoError(t, err)

	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "only", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	first, err := dispatch.Poll(ctx, w1.ID)
	require.NoError(t, err)
	second, err := dispatch.Poll(ctx, w2.ID)
	require.NoError(t, err)

	require.NotNil(t, first)
	require.Equal(t, run.ID, first.RunID)
	require.Nil(t, second)

	after, err := r.runs.GetByID(ctx, nil, run.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.RunStatusAssigned, after.Status)
	require.Equal(t, w1.ID, *after.WorkerID)
}

func TestPollLabelRouting(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	gpuWorker, err := r.workers.Create(ctx, nil, &types.Worker{
		WorkspaceID: "default", Name: "w-gpu", Labels: datatypes.JSONMap{"gpu": "true"},
	})
	require.NoError(t, err)
	cpuWorker, err := r.workers.Create(ctx, nil, &types.Worker{
		WorkspaceID: "default", Name: "w-cpu", Labels: datatypes.JSONMap{"gpu": "false"},
	})
	require.NoError(t, err)

	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "tpu-run", TaskPrompt: "p", AgentType: "goose",
		RequiredLabels: datatypes.JSONMap{"tpu": "true"},
	})
	require.NoError(t, err)
	gpuRun, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "gpu-run", TaskPrompt: "p", AgentType: "goose",
		RequiredLabels: datatypes.JSONMap{"gpu": "true"},
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, gpuWorker.ID)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	require.Equal(t, gpuRun.ID, envelope.RunID)

	none, err := dispatch.Poll(ctx, cpuWorker.ID)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestPollSkipsCancelledRun(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	lifecycle := NewLifecycleService(db, logger.NewNop(), r.runs, r.workers, noopWebhooks{})
	ctx := context.Background()

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)
	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	cancelled, err := lifecycle.CancelRun(ctx, run.ID, "default")
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	require.Equal(t, types.RunStatusCancelled, cancelled.Status)

	envelope, err := dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.Nil(t, envelope)

	after, err := r.runs.GetByID(ctx, nil, run.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.RunStatusCancelled, after.Status)
}

func TestPollWorkspaceIsolation(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	workerA, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "tenant-a", Name: "wa"})
	require.NoError(t, err)
	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "tenant-b", Name: "other-tenant", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, workerA.ID)
	require.NoError(t, err)
	require.Nil(t, envelope)
}

func TestPollHonorsScheduledAt(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)

	future := time.Now().UTC().Add(time.Hour)
	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "deferred", TaskPrompt: "p", AgentType: "goose",
		ScheduledAt: &future,
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.Nil(t, envelope)

	past := time.Now().UTC().Add(-time.Minute)
	ready, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "ready", TaskPrompt: "p", AgentType: "goose",
		ScheduledAt: &past,
	})
	require.NoError(t, err)

	envelope, err = dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	require.Equal(t, ready.ID, envelope.RunID)
}

func TestEnvelopeCarriesCredentialsAndSkills(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	box, err := secrets.NewBox(key)
	require.NoError(t, err)
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	encrypted, err := box.Encrypt("s3cret")
	require.NoError(t, err)
	_, err = r.credentials.Create(ctx, nil, &types.Credential{
		WorkspaceID: "default", Name: "github-token", EnvVar: "GITHUB_TOKEN", EncryptedValue: encrypted,
	})
	require.NoError(t, err)

	skill, err := r.skills.Create(ctx, nil, &types.Skill{
		WorkspaceID: "default", Name: "review", Description: "d", Instructions: "do the review",
	})
	require.NoError(t, err)
	_, err = r.skills.CreateFile(ctx, nil, &types.SkillFile{
		SkillID: skill.ID, FilePath: "SKILL.md", SizeBytes: 10, ChecksumSHA256: "abc", ContentType: "text/markdown",
	})
	require.NoError(t, err)

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)

	// skill_ids nil means every workspace skill is attached.
	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
		CredentialIDs: datatypes.JSONSlice[string]{"github-token", "missing-cred"},
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	require.Equal(t, "s3cret", envelope.Credentials["GITHUB_TOKEN"])
	require.Len(t, envelope.Credentials, 1)
	require.Len(t, envelope.Skills, 1)
	require.Equal(t, "review", envelope.Skills[0].Name)
	require.Equal(t, "do the review", envelope.Skills[0].Instructions)
	require.Len(t, envelope.Skills[0].Files, 1)
	require.Equal(t, "SKILL.md", envelope.Skills[0].Files[0].FilePath)
}

func TestEnvelopeEmptySkillListAttachesNone(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	box, _ := secrets.NewBox("")
	dispatch := NewDispatchService(db, logger.NewNop(), r.runs, r.workers, r.credentials, r.skills, box)
	ctx := context.Background()

	_, err := r.skills.Create(ctx, nil, &types.Skill{
		WorkspaceID: "default", Name: "review", Description: "d", Instructions: "i",
	})
	require.NoError(t, err)

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w1"})
	require.NoError(t, err)

	empty := datatypes.NewJSONSlice([]string{})
	_, err = r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
		SkillIDs: &empty,
	})
	require.NoError(t, err)

	envelope, err := dispatch.Poll(ctx, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	require.Empty(t, envelope.Skills)
}
