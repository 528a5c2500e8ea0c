package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

func newAuthFixture(t *testing.T) (AuthService, WorkspaceService, testRepos) {
	t.Helper()
	db := newTestDB(t)
	r := newTestRepos(db)
	log := logger.NewNop()
	workspaces := NewWorkspaceService(db, log, r.workspaces, r.users)
	require.NoError(t, workspaces.EnsureDefaults(context.Background()))
	auth := NewAuthService(db, log, r.users, r.apiKeys, r.workspaces, "admin-key")
	return auth, workspaces, r
}

func TestDefaultAdminKeyAuthenticates(t *testing.T) {
	auth, _, _ := newAuthFixture(t)

	got, err := auth.Authenticate(context.Background(), "admin-key", "")
	require.NoError(t, err)
	require.Equal(t, "admin", got.User.Username)
	require.Equal(t, types.DefaultWorkspaceID, got.WorkspaceID)
	require.True(t, got.IsAdmin())
}

func TestUnknownKeyIsUnauthenticated(t *testing.T) {
	auth, _, _ := newAuthFixture(t)

	_, err := auth.Authenticate(context.Background(), "nope", "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHashedKeyLookup(t *testing.T) {
	auth, _, r := newAuthFixture(t)
	ctx := context.Background()

	_, err := r.users.Create(ctx, nil, &types.User{ID: "carol", Username: "carol"})
	require.NoError(t, err)
	require.NoError(t, r.workspaces.AddMember(ctx, nil, &types.WorkspaceMember{
		WorkspaceID: types.DefaultWorkspaceID, UserID: "carol", Role: "member",
	}))
	_, err = r.apiKeys.Create(ctx, nil, &types.ApiKey{
		ID: "key-1", Name: "carol-key", KeyHash: HashKey("raw-token"), Role: RoleWorker, UserID: "carol",
	})
	require.NoError(t, err)

	got, err := auth.Authenticate(ctx, "raw-token", "")
	require.NoError(t, err)
	require.Equal(t, "carol", got.User.ID)
	require.False(t, got.IsAdmin())
}

func TestNonMemberIsForbidden(t *testing.T) {
	auth, _, r := newAuthFixture(t)
	ctx := context.Background()

	_, err := r.workspaces.Create(ctx, nil, &types.Workspace{
		ID: "tenant-b", Name: "Tenant B", Slug: "tenant-b",
	})
	require.NoError(t, err)

	_, err = r.users.Create(ctx, nil, &types.User{ID: "dave", Username: "dave"})
	require.NoError(t, err)
	require.NoError(t, r.workspaces.AddMember(ctx, nil, &types.WorkspaceMember{
		WorkspaceID: types.DefaultWorkspaceID, UserID: "dave", Role: "member",
	}))
	_, err = r.apiKeys.Create(ctx, nil, &types.ApiKey{
		ID: "key-2", KeyHash: HashKey("dave-token"), Role: RoleWorker, UserID: "dave",
	})
	require.NoError(t, err)

	// Member of default, not of tenant-b.
	_, err = auth.Authenticate(ctx, "dave-token", "tenant-b")
	require.ErrorIs(t, err, ErrForbidden)

	got, err := auth.Authenticate(ctx, "dave-token", types.DefaultWorkspaceID)
	require.NoError(t, err)
	require.Equal(t, "dave", got.User.ID)
}
