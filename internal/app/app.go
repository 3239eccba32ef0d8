package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/data/db"
	"github.com/yungbote/docfill-backend/internal/data/repos"
	"github.com/yungbote/docfill-backend/internal/http"
	"github.com/yungbote/docfill-backend/internal/observability"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    repos.Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a, err := Open(context.Background(), log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// Open builds the app around an existing logger. The CLI uses it with a quiet
// logger so the terminal UI stays readable.
func Open(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(serviceName, cfg.Environment))

	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbs.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init(log)
	}
	handlerset := wireHandlers(log, theDB, serviceset)
	router := wireRouter(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB, 30*time.Second)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, 30*time.Second)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr)
	return http.NewServer(a.Router).Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
