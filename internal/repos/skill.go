package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

type SkillRepo interface {
	Create(ctx context.Context, tx *gorm.DB, skill *types.Skill) (*types.Skill, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Skill, error)
	GetByName(ctx context.Context, tx *gorm.DB, workspaceID, name string) (*types.Skill, error)
	GetByNames(ctx context.Context, tx *gorm.DB, workspaceID string, names []string) ([]*types.Skill, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Skill, error)
	Save(ctx context.Context, tx *gorm.DB, skill *types.Skill) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error)

	CreateFile(ctx context.Context, tx *gorm.DB, file *types.SkillFile) (*types.SkillFile, error)
	ListFiles(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) ([]*types.SkillFile, error)
	DeleteFiles(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) error
}

type skillRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillRepo(db *gorm.DB, baseLog *logger.Logger) SkillRepo {
	return &skillRepo{db: db, log: baseLog.With("repo", "SkillRepo")}
}

func (r *skillRepo) Create(ctx context.Context, tx *gorm.DB, skill *types.Skill) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if skill.ID == uuid.Nil {
		skill.ID = uuid.New()
	}
	now := time.Now().UTC()
	skill.CreatedAt = now
	skill.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(skill).Error; err != nil {
		return nil, err
	}
	return skill, nil
}

func (r *skillRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var skill types.Skill
	err := q.First(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *skillRepo) GetByName(ctx context.Context, tx *gorm.DB, workspaceID, name string) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var skill types.Skill
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND name = ?", workspaceID, name).
		First(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *skillRepo) GetByNames(ctx context.Context, tx *gorm.DB, workspaceID string, names []string) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Skill
	if len(names) == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND name IN ?", workspaceID, names).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Skill
	err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillRepo) Save(ctx context.Context, tx *gorm.DB, skill *types.Skill) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	skill.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(skill).Error
}

func (r *skillRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&types.Skill{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *skillRepo) CreateFile(ctx context.Context, tx *gorm.DB, file *types.SkillFile) (*types.SkillFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	file.CreatedAt = time.Now().UTC()
	if err := transaction.WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

func (r *skillRepo) ListFiles(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) ([]*types.SkillFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SkillFile
	err := transaction.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("file_path ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillRepo) DeleteFiles(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Delete(&types.SkillFile{}).Error
}
