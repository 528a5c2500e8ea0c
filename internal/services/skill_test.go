package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/skillmd"
	"github.com/block/flight-control/internal/storage"
)

func newSkillFixture(t *testing.T) (SkillService, string) {
	t.Helper()
	db := newTestDB(t)
	r := newTestRepos(db)
	dir := t.TempDir()
	return NewSkillService(db, logger.NewNop(), r.skills, storage.NewLocalStore(dir)), dir
}

func TestCreateSkillPersistsFilesAndAggregates(t *testing.T) {
	skills, dir := newSkillFixture(t)
	ctx := context.Background()

	parsed := &skillmd.ParsedSkill{
		Name:         "code-review",
		Description:  "Reviews code",
		Instructions: "Look carefully.",
	}
	created, err := skills.Create(ctx, parsed, "default", map[string][]byte{
		"scripts/check.sh": []byte("#!/bin/sh\n"),
	})
	require.NoError(t, err)

	// SKILL.md is rebuilt and stored alongside the uploaded file.
	require.Equal(t, 2, created.FileCount)
	require.Greater(t, created.TotalSizeBytes, int64(0))

	files, err := skills.Files(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	onDisk, err := os.ReadFile(filepath.Join(dir, "default", "code-review", "scripts", "check.sh"))
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\n", string(onDisk))

	skillMD, err := os.ReadFile(filepath.Join(dir, "default", "code-review", "SKILL.md"))
	require.NoError(t, err)
	reparsed, err := skillmd.Parse(string(skillMD))
	require.NoError(t, err)
	require.Equal(t, "code-review", reparsed.Name)
}

func TestCreateDuplicateSkillNameConflicts(t *testing.T) {
	skills, _ := newSkillFixture(t)
	ctx := context.Background()

	parsed := &skillmd.ParsedSkill{Name: "dup", Description: "d", Instructions: "i"}
	_, err := skills.Create(ctx, parsed, "default", nil)
	require.NoError(t, err)

	_, err = skills.Create(ctx, parsed, "default", nil)
	require.ErrorIs(t, err, ErrSkillExists)

	// The same name in another workspace is fine.
	_, err = skills.Create(ctx, parsed, "other", nil)
	require.NoError(t, err)
}

func TestDeleteSkillRemovesFilesAndTree(t *testing.T) {
	skills, dir := newSkillFixture(t)
	ctx := context.Background()

	parsed := &skillmd.ParsedSkill{Name: "gone", Description: "d", Instructions: "i"}
	created, err := skills.Create(ctx, parsed, "default", map[string][]byte{"a.txt": []byte("a")})
	require.NoError(t, err)

	deleted, err := skills.Delete(ctx, created.ID, "default")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = os.Stat(filepath.Join(dir, "default", "gone"))
	require.True(t, os.IsNotExist(err))

	files, err := skills.Files(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, files)

	again, err := skills.Delete(ctx, created.ID, "default")
	require.NoError(t, err)
	require.False(t, again)
}
