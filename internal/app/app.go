package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/db"
	"github.com/block/flight-control/internal/observability"
	"github.com/block/flight-control/internal/pkg/envutil"
	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/server"
	"github.com/block/flight-control/internal/sse"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *sse.Hub

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("ORCH_LOG_LEVEL")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "flight-control",
		Environment: envutil.GetEnv("ORCH_ENVIRONMENT", "development", nil),
		Version:     envutil.GetEnv("ORCH_VERSION", "dev", nil),
	})

	hub := sse.NewHub(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(serviceset)
	routerCfg := wireRouter(log, serviceset, handlerset)
	router := server.NewRouter(*routerCfg)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       hub,
		otelShutdown: otelShutdown,
	}, nil
}

// Start seeds defaults and launches the background loops: scheduler,
// heartbeat reaper, and run timeout sweep.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.Services.Workspaces.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("ensure default workspace: %w", err)
	}

	a.Services.Scheduler.Start(ctx)
	a.Services.Reaper.Start(ctx)
	a.Services.Lifecycle.Start(ctx)
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := a.Cfg.ServerHost + ":" + a.Cfg.ServerPort
	a.Log.Info("Server listening", "addr", addr)
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
