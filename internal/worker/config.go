package worker

import (
	"strings"
	"time"

	"github.com/block/flight-control/internal/pkg/envutil"
	"github.com/block/flight-control/internal/pkg/logger"
)

type Config struct {
	ServerURL         string
	APIKey            string
	WorkspaceID       string
	WorkerName        string
	Labels            map[string]string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	LogBatchInterval  time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	pollSeconds := envutil.GetEnvAsInt("ORCH_POLL_INTERVAL", 5, log)
	heartbeatSeconds := envutil.GetEnvAsInt("ORCH_HEARTBEAT_INTERVAL", 30, log)
	logBatchSeconds := envutil.GetEnvAsInt("ORCH_LOG_BATCH_INTERVAL", 2, log)
	return Config{
		ServerURL:         envutil.GetEnv("ORCH_SERVER_URL", "http://localhost:8080", log),
		APIKey:            envutil.GetEnv("ORCH_API_KEY", "admin", log),
		WorkspaceID:       envutil.GetEnv("ORCH_WORKSPACE_ID", "default", log),
		WorkerName:        envutil.GetEnv("ORCH_WORKER_NAME", "", log),
		Labels:            parseLabels(envutil.GetEnv("ORCH_LABELS", "", log)),
		PollInterval:      time.Duration(pollSeconds) * time.Second,
		HeartbeatInterval: time.Duration(heartbeatSeconds) * time.Second,
		LogBatchInterval:  time.Duration(logBatchSeconds) * time.Second,
	}
}

// parseLabels reads comma-separated k=v pairs.
func parseLabels(raw string) map[string]string {
	labels := map[string]string{}
	if raw == "" {
		return labels
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		labels[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return labels
}
