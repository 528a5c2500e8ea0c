package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/secrets"
	"github.com/block/flight-control/internal/types"
)

type SkillFileManifest struct {
	FilePath       string `json:"file_path"`
	SizeBytes      int64  `json:"size_bytes"`
	ChecksumSHA256 string `json:"checksum_sha256"`
	ContentType    string `json:"content_type"`
}

type SkillManifest struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Instructions string              `json:"instructions"`
	AllowedTools string              `json:"allowed_tools,omitempty"`
	Files        []SkillFileManifest `json:"files"`
}

// DispatchEnvelope is the poll response: everything a worker needs to
// execute the run, including decrypted credentials and skill manifests.
// Skill file bytes are not embedded; workers fetch them separately.
type DispatchEnvelope struct {
	RunID          uuid.UUID         `json:"run_id"`
	Name           string            `json:"name"`
	TaskPrompt     string            `json:"task_prompt"`
	AgentType      string            `json:"agent_type"`
	AgentConfig    datatypes.JSONMap `json:"agent_config"`
	MCPServers     datatypes.JSON    `json:"mcp_servers"`
	EnvVars        datatypes.JSONMap `json:"env_vars"`
	Credentials    map[string]string `json:"credentials"`
	Skills         []SkillManifest   `json:"skills"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

type DispatchService interface {
	// Poll atomically assigns the oldest eligible queued run to the worker.
	// Returns nil when nothing is dispatchable.
	Poll(ctx context.Context, workerID uuid.UUID) (*DispatchEnvelope, error)
}

type dispatchService struct {
	db          *gorm.DB
	log         *logger.Logger
	runs        repos.JobRunRepo
	workers     repos.WorkerRepo
	credentials repos.CredentialRepo
	skills      repos.SkillRepo
	box         *secrets.Box
}

func NewDispatchService(db *gorm.DB, baseLog *logger.Logger, runs repos.JobRunRepo, workers repos.WorkerRepo, credentials repos.CredentialRepo, skills repos.SkillRepo, box *secrets.Box) DispatchService {
	return &dispatchService{
		db:          db,
		log:         baseLog.With("service", "DispatchService"),
		runs:        runs,
		workers:     workers,
		credentials: credentials,
		skills:      skills,
		box:         box,
	}
}

// labelsMatch reports whether worker labels satisfy the run's required
// labels: every required (k,v) pair must be present with an equal value.
// Empty or absent requirements match any worker.
func labelsMatch(required, workerLabels datatypes.JSONMap) bool {
	if len(required) == 0 {
		return true
	}
	if len(workerLabels) == 0 {
		return false
	}
	for key, want := range required {
		got, ok := workerLabels[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (s *dispatchService) Poll(ctx context.Context, workerID uuid.UUID) (*DispatchEnvelope, error) {
	var claimed *types.JobRun

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		worker, err := s.workers.GetByID(ctx, tx, workerID, "")
		if err != nil {
			return err
		}
		if worker == nil {
			return nil
		}

		now := time.Now().UTC()
		candidates, err := s.runs.ListDispatchable(ctx, tx, worker.WorkspaceID, now)
		if err != nil {
			return err
		}

		// Oldest eligible first; a lost claim race advances to the next
		// candidate within the same scan.
		for _, run := range candidates {
			if !labelsMatch(run.RequiredLabels, worker.Labels) {
				continue
			}
			won, err := s.runs.ClaimQueued(ctx, tx, run.ID, workerID, now)
			if err != nil {
				return err
			}
			if !won {
				continue
			}
			if err := s.workers.UpdateFields(ctx, tx, workerID, map[string]interface{}{
				"status":         types.WorkerStatusBusy,
				"current_run_id": run.ID,
			}); err != nil {
				return err
			}
			run.Status = types.RunStatusAssigned
			run.WorkerID = &workerID
			run.StartedAt = &now
			claimed = run
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, nil
	}

	s.log.Info("Run dispatched", "run_id", claimed.ID, "worker_id", workerID, "attempt", claimed.AttemptNumber)
	return s.buildEnvelope(ctx, claimed)
}

func (s *dispatchService) buildEnvelope(ctx context.Context, run *types.JobRun) (*DispatchEnvelope, error) {
	envelope := &DispatchEnvelope{
		RunID:          run.ID,
		Name:           run.Name,
		TaskPrompt:     run.TaskPrompt,
		AgentType:      run.AgentType,
		AgentConfig:    run.AgentConfig,
		MCPServers:     run.MCPServers,
		EnvVars:        run.EnvVars,
		Credentials:    map[string]string{},
		Skills:         []SkillManifest{},
		TimeoutSeconds: run.TimeoutSeconds,
	}

	if len(run.CredentialIDs) > 0 {
		creds, err := s.credentials.GetByNames(ctx, nil, run.WorkspaceID, run.CredentialIDs)
		if err != nil {
			return nil, err
		}
		for _, cred := range creds {
			plaintext, err := s.box.Decrypt(cred.EncryptedValue)
			if err != nil {
				// A broken credential is omitted rather than failing the dispatch.
				s.log.Warn("Credential decryption failed, omitting", "credential", cred.Name, "run_id", run.ID, "error", err)
				continue
			}
			envelope.Credentials[cred.EnvVar] = plaintext
		}
	}

	attached, err := s.resolveSkills(ctx, run)
	if err != nil {
		return nil, err
	}
	for _, skill := range attached {
		manifest := SkillManifest{
			ID:           skill.ID.String(),
			Name:         skill.Name,
			Instructions: skill.Instructions,
			AllowedTools: skill.AllowedTools,
			Files:        []SkillFileManifest{},
		}
		files, err := s.skills.ListFiles(ctx, nil, skill.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			manifest.Files = append(manifest.Files, SkillFileManifest{
				FilePath:       f.FilePath,
				SizeBytes:      f.SizeBytes,
				ChecksumSHA256: f.ChecksumSHA256,
				ContentType:    f.ContentType,
			})
		}
		envelope.Skills = append(envelope.Skills, manifest)
	}

	return envelope, nil
}

// resolveSkills applies the tri-valued attachment policy: nil skill_ids means
// every workspace skill, an empty list means none, otherwise the named set.
func (s *dispatchService) resolveSkills(ctx context.Context, run *types.JobRun) ([]*types.Skill, error) {
	if run.SkillIDs == nil {
		return s.skills.ListByWorkspace(ctx, nil, run.WorkspaceID)
	}
	names := []string(*run.SkillIDs)
	if len(names) == 0 {
		return nil, nil
	}
	return s.skills.GetByNames(ctx, nil, run.WorkspaceID, names)
}
