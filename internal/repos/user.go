package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var user types.User
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type ApiKeyRepo interface {
	GetByHash(ctx context.Context, tx *gorm.DB, keyHash string) (*types.ApiKey, error)
	Create(ctx context.Context, tx *gorm.DB, key *types.ApiKey) (*types.ApiKey, error)
}

type apiKeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApiKeyRepo(db *gorm.DB, baseLog *logger.Logger) ApiKeyRepo {
	return &apiKeyRepo{db: db, log: baseLog.With("repo", "ApiKeyRepo")}
}

func (r *apiKeyRepo) GetByHash(ctx context.Context, tx *gorm.DB, keyHash string) (*types.ApiKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var key types.ApiKey
	err := transaction.WithContext(ctx).Where("key_hash = ?", keyHash).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepo) Create(ctx context.Context, tx *gorm.DB, key *types.ApiKey) (*types.ApiKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	key.CreatedAt = time.Now().UTC()
	if err := transaction.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}
