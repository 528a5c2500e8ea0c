package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

const (
	DefaultAdminUserID = "admin"
	RoleAdmin          = "admin"
	RoleWorker         = "worker"
)

var (
	ErrUnauthenticated = errors.New("invalid API key")
	ErrForbidden       = errors.New("forbidden")
)

// AuthContext is the validated (user, api key, workspace) tuple every
// authenticated request carries.
type AuthContext struct {
	User        *types.User
	ApiKey      *types.ApiKey
	WorkspaceID string
}

func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.ApiKey != nil && a.ApiKey.Role == RoleAdmin
}

type AuthService interface {
	// Authenticate reduces a bearer token plus workspace header to an
	// AuthContext. Unknown key -> ErrUnauthenticated; non-member -> ErrForbidden.
	Authenticate(ctx context.Context, token, workspaceID string) (*AuthContext, error)
}

type authService struct {
	db              *gorm.DB
	log             *logger.Logger
	users           repos.UserRepo
	apiKeys         repos.ApiKeyRepo
	workspaces      repos.WorkspaceRepo
	defaultAdminKey string
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo, apiKeys repos.ApiKeyRepo, workspaces repos.WorkspaceRepo, defaultAdminKey string) AuthService {
	return &authService{
		db:              db,
		log:             baseLog.With("service", "AuthService"),
		users:           users,
		apiKeys:         apiKeys,
		workspaces:      workspaces,
		defaultAdminKey: defaultAdminKey,
	}
}

func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func (s *authService) Authenticate(ctx context.Context, token, workspaceID string) (*AuthContext, error) {
	if workspaceID == "" {
		workspaceID = types.DefaultWorkspaceID
	}

	var user *types.User
	var apiKey *types.ApiKey

	if s.defaultAdminKey != "" && token == s.defaultAdminKey {
		// Synthesised key bound to the seeded admin user; never persisted.
		apiKey = &types.ApiKey{ID: "default", Name: "default-admin", Role: RoleAdmin, UserID: DefaultAdminUserID}
		u, err := s.users.GetByID(ctx, nil, DefaultAdminUserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			u = &types.User{ID: DefaultAdminUserID, Username: "admin", DisplayName: "Admin"}
		}
		user = u
	} else {
		key, err := s.apiKeys.GetByHash(ctx, nil, HashKey(token))
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, ErrUnauthenticated
		}
		apiKey = key

		if key.UserID != "" {
			u, err := s.users.GetByID(ctx, nil, key.UserID)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, fmt.Errorf("user not found for API key: %w", ErrUnauthenticated)
			}
			user = u
		} else {
			// Legacy key without user binding: treated as the admin user.
			u, err := s.users.GetByID(ctx, nil, DefaultAdminUserID)
			if err != nil {
				return nil, err
			}
			if u == nil {
				u = &types.User{ID: DefaultAdminUserID, Username: "admin", DisplayName: "Admin"}
			}
			user = u
		}
	}

	member, err := s.workspaces.GetMember(ctx, nil, workspaceID, user.ID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("not a member of workspace %q: %w", workspaceID, ErrForbidden)
	}

	return &AuthContext{User: user, ApiKey: apiKey, WorkspaceID: workspaceID}, nil
}
