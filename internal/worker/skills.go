package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/services"
)

// WriteSkills downloads the attached skill files and lays them out under
// .goose/skills/<name>/ so the agent discovers them natively. Files whose
// checksum does not match the manifest are skipped.
func WriteSkills(ctx context.Context, client *Client, log *logger.Logger, skills []services.SkillManifest, workDir string) error {
	if len(skills) == 0 {
		return nil
	}
	skillsDir := filepath.Join(workDir, ".goose", "skills")
	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		return err
	}

	for _, skill := range skills {
		skillDir := filepath.Join(skillsDir, skill.Name)
		if err := os.MkdirAll(skillDir, 0o755); err != nil {
			return err
		}
		for _, file := range skill.Files {
			data, err := client.DownloadSkillFile(ctx, skill.ID, file.FilePath)
			if err != nil {
				log.Error("Failed to download skill file", "skill", skill.Name, "file", file.FilePath, "error", err)
				continue
			}
			sum := sha256.Sum256(data)
			if hex.EncodeToString(sum[:]) != file.ChecksumSHA256 {
				log.Warn("Checksum mismatch for skill file, skipping", "skill", skill.Name, "file", file.FilePath)
				continue
			}
			dest := filepath.Join(skillDir, file.FilePath)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
