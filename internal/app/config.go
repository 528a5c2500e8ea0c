package app

import (
	"time"

	"github.com/block/flight-control/internal/pkg/envutil"
	"github.com/block/flight-control/internal/pkg/logger"
)

type Config struct {
	ServerHost          string
	ServerPort          string
	MasterKey           string
	DefaultAdminKey     string
	HeartbeatTimeout    time.Duration
	ArtifactStoragePath string
	SkillStoragePath    string
}

func LoadConfig(log *logger.Logger) Config {
	heartbeatTimeoutSeconds := envutil.GetEnvAsInt("ORCH_WORKER_HEARTBEAT_TIMEOUT", 90, log)
	return Config{
		ServerHost:          envutil.GetEnv("ORCH_SERVER_HOST", "0.0.0.0", log),
		ServerPort:          envutil.GetEnv("ORCH_SERVER_PORT", "8080", log),
		MasterKey:           envutil.GetEnv("ORCH_MASTER_KEY", "", log),
		DefaultAdminKey:     envutil.GetEnv("ORCH_DEFAULT_ADMIN_KEY", "admin", log),
		HeartbeatTimeout:    time.Duration(heartbeatTimeoutSeconds) * time.Second,
		ArtifactStoragePath: envutil.GetEnv("ORCH_ARTIFACT_STORAGE_PATH", "./data/artifacts", log),
		SkillStoragePath:    envutil.GetEnv("ORCH_SKILL_STORAGE_PATH", "./data/skills", log),
	}
}
