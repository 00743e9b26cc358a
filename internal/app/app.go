package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/slidescore-backend/internal/db"
	internalhttp "github.com/yungbote/slidescore-backend/internal/http"
	"github.com/yungbote/slidescore-backend/internal/http/handlers"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/repos"
	"github.com/yungbote/slidescore-backend/internal/scoring"
	"github.com/yungbote/slidescore-backend/internal/scoring/enginehttp"
	"github.com/yungbote/slidescore-backend/internal/scoring/enginelocal"
	"github.com/yungbote/slidescore-backend/internal/scoring/enginemock"
	"github.com/yungbote/slidescore-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Cfg    Config
	Engine scoring.Engine

	server *nethttp.Server
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
	gdb := pg.DB()

	engine, err := newEngine(cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init scoring engine: %w", err)
	}

	scoreRepo := repos.NewImageScoreRepo(gdb, log)

	ingestion := services.NewIngestionService(gdb, log, services.IngestionConfig{
		AcceptedExtensions: cfg.AcceptedExts,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	}, engine, scoreRepo)
	correction := services.NewCorrectionService(gdb, log, scoreRepo)

	router := internalhttp.NewRouter(internalhttp.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		UploadHandler:  handlers.NewUploadHandler(log, ingestion, cfg.MaxUploadBytes),
		ScoreHandler:   handlers.NewScoreHandler(log, correction),
		HealthHandler:  handlers.NewHealthHandler(log, gdb, engine),
	})

	return &App{
		Log:    log,
		DB:     gdb,
		Cfg:    cfg,
		Engine: engine,
		server: internalhttp.NewServer(cfg.HTTPAddr, router),
	}, nil
}

func newEngine(cfg Config, log *logger.Logger) (scoring.Engine, error) {
	switch cfg.ScoringEngine {
	case "local":
		return enginelocal.New(cfg.ModelPath, log), nil
	case "http":
		return enginehttp.New(enginehttp.Config{
			BaseURL: cfg.ScoringBaseURL,
			Timeout: cfg.ScoringTimeout,
		})
	case "mock":
		return enginemock.New(), nil
	default:
		return nil, fmt.Errorf("unknown scoring engine %q", cfg.ScoringEngine)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.Log.Info("Starting HTTP server", "addr", a.Cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	}
}
