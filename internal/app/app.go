package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/db"
	"github.com/sharmaji2007/student-counsellor-system/internal/middleware"
	"github.com/sharmaji2007/student-counsellor-system/internal/observability"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/server"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

const chatCleanupInterval = 1 * time.Hour

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "student-counsellor",
		Environment: os.Getenv("ENVIRONMENT"),
		Version:     os.Getenv("SERVICE_VERSION"),
	})

	theDB, err := openDatabase(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clientset := wireClients(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset)
	authMW := middleware.NewAuthMiddleware(log, serviceset.Auth)
	rateLimiter := middleware.NewRateLimiter(log, clientset.RateCounter)
	router := server.NewRouter(authMW, rateLimiter, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

// openDatabase picks the driver from DB_DRIVER. Postgres is the
// default; sqlite serves local development.
func openDatabase(log *logger.Logger) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	if driver == "sqlite" {
		log.Info("Using sqlite database")
		return db.NewSQLiteDB(log)
	}
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	return pg.DB(), nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	a.startChatCleanupScheduler(ctx)
}

// startChatCleanupScheduler enqueues a retention sweep periodically.
// The sweep runs through the job worker so it shares retry semantics
// with everything else.
func (a *App) startChatCleanupScheduler(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(chatCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := a.Repos.JobRun.Enqueue(ctx, nil, &types.JobRun{
					ID:      uuid.New(),
					JobType: services.JobTypeChatCleanup,
				})
				if err != nil {
					a.Log.Warn("Failed to enqueue chat cleanup", "error", err.Error())
				}
			}
		}
	}()
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
