package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

var ErrInvalidCron = errors.New("invalid cron expression")

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ComputeNextRun returns the next fire time after base for a standard
// 5-field cron expression, in UTC.
func ComputeNextRun(expression string, base time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expression)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched.Next(base.UTC()).UTC(), nil
}

func ValidateCron(expression string) error {
	if _, err := cronParser.Parse(expression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return nil
}

type ScheduleCreateInput struct {
	JobDefinitionID uuid.UUID `json:"job_definition_id" binding:"required"`
	CronExpression  string    `json:"cron_expression" binding:"required"`
	Enabled         *bool     `json:"enabled"`
	Name            string    `json:"name"`
}

type ScheduleUpdateInput struct {
	CronExpression *string `json:"cron_expression"`
	Enabled        *bool   `json:"enabled"`
	Name           *string `json:"name"`
}

type ScheduleService interface {
	List(ctx context.Context, workspaceID string) ([]*types.Schedule, error)
	Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.Schedule, error)
	Create(ctx context.Context, input ScheduleCreateInput, workspaceID string) (*types.Schedule, error)
	Update(ctx context.Context, id uuid.UUID, input ScheduleUpdateInput, workspaceID string) (*types.Schedule, error)
	Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error)
}

type scheduleService struct {
	db        *gorm.DB
	log       *logger.Logger
	schedules repos.ScheduleRepo
}

func NewScheduleService(db *gorm.DB, baseLog *logger.Logger, schedules repos.ScheduleRepo) ScheduleService {
	return &scheduleService{
		db:        db,
		log:       baseLog.With("service", "ScheduleService"),
		schedules: schedules,
	}
}

func (s *scheduleService) List(ctx context.Context, workspaceID string) ([]*types.Schedule, error) {
	return s.schedules.ListByWorkspace(ctx, nil, workspaceID)
}

func (s *scheduleService) Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.Schedule, error) {
	return s.schedules.GetByID(ctx, nil, id, workspaceID)
}

func (s *scheduleService) Create(ctx context.Context, input ScheduleCreateInput, workspaceID string) (*types.Schedule, error) {
	if err := ValidateCron(input.CronExpression); err != nil {
		return nil, err
	}
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	schedule := &types.Schedule{
		WorkspaceID:     workspaceID,
		JobDefinitionID: input.JobDefinitionID,
		CronExpression:  input.CronExpression,
		Enabled:         enabled,
		Name:            input.Name,
	}
	if enabled {
		next, err := ComputeNextRun(input.CronExpression, time.Now())
		if err != nil {
			return nil, err
		}
		schedule.NextRunAt = &next
	}
	return s.schedules.Create(ctx, nil, schedule)
}

func (s *scheduleService) Update(ctx context.Context, id uuid.UUID, input ScheduleUpdateInput, workspaceID string) (*types.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, nil, id, workspaceID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, nil
	}
	if input.CronExpression != nil {
		if err := ValidateCron(*input.CronExpression); err != nil {
			return nil, err
		}
		schedule.CronExpression = *input.CronExpression
	}
	if input.Enabled != nil {
		schedule.Enabled = *input.Enabled
	}
	if input.Name != nil {
		schedule.Name = *input.Name
	}

	if schedule.Enabled {
		next, err := ComputeNextRun(schedule.CronExpression, time.Now())
		if err != nil {
			return nil, err
		}
		schedule.NextRunAt = &next
	} else {
		schedule.NextRunAt = nil
	}

	if err := s.schedules.Save(ctx, nil, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *scheduleService) Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error) {
	return s.schedules.Delete(ctx, nil, id, workspaceID)
}
