package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/observability"
	"github.com/journeylog/journeylog-backend/internal/platform/gcp"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Gateway  *store.FirestoreGateway
	Services Services
	Router   *gin.Engine

	server       *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("loading configuration")
	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	gw, err := store.NewFirestoreGateway(ctx, log, cfg.GCPProjectID, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init firestore: %w", err)
	}

	svcs := wireServices(gw, log, cfg.ServicesConfig())
	router := wireRouter(log, cfg, svcs)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Gateway:      gw,
		Services:     svcs,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks serving HTTP until the listener fails or Shutdown is called.
func (a *App) Run() error {
	a.server = &http.Server{
		Addr:    a.Cfg.Addr(),
		Handler: a.Router,
	}
	a.Log.Info("http server starting", "addr", a.Cfg.Addr(), "env", a.Cfg.Environment)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return firstErr
}
