package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/retina-portal/internal/api/http"
	"github.com/spec-kit/retina-portal/internal/api/http/handlers"
	"github.com/spec-kit/retina-portal/internal/auth"
	"github.com/spec-kit/retina-portal/internal/capability"
	"github.com/spec-kit/retina-portal/internal/config"
	"github.com/spec-kit/retina-portal/internal/events"
	"github.com/spec-kit/retina-portal/internal/guard"
	"github.com/spec-kit/retina-portal/internal/observability"
	"github.com/spec-kit/retina-portal/internal/persistence"
	"github.com/spec-kit/retina-portal/internal/recordstore"
	"github.com/spec-kit/retina-portal/internal/repository"
	"github.com/spec-kit/retina-portal/internal/scan"
	"github.com/spec-kit/retina-portal/internal/service"
	"github.com/spec-kit/retina-portal/internal/session"
	"github.com/spec-kit/retina-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := recordstore.NewPostgresStore(pg.PoolHandle())
	credentialRepo := repository.NewCredentialRepository(store)
	profileRepo := repository.NewProfileRepository(store)
	scanRepo := repository.NewScanRepository(store)
	appointmentRepo := repository.NewAppointmentRepository(store)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	tokenStore := capability.NewRedisTokenStore(redis.Client)
	source := capability.NewTokenSource(capability.TokenSourceDeps{
		Tokens:      tokenManager,
		Credentials: credentialRepo,
		Profiles:    profileRepo,
		Store:       tokenStore,
		Dispatcher:  dispatcher,
		Logger:      logger,
		BcryptCost:  cfg.Auth.BcryptCost,
		SessionTTL:  cfg.Auth.AccessTokenTTL(),
	})

	synchronizer := session.NewSynchronizer(source, profileRepo, logger)
	synchronizer.Start(ctx)
	defer synchronizer.Close()

	accountService := service.NewAccountService(source, profileRepo, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, profileRepo, dispatcher)
	historyService := service.NewScanHistoryService(scanRepo)

	auditWorker := worker.NewAuditWorker(dispatcher, logger, metrics)
	auditWorker.Start()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	guardMiddleware := guard.NewMiddleware(tokenManager, tokenStore, profileRepo)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth: handlers.NewAuthHandler(handlers.AuthHandlerDeps{
			Accounts: accountService,
			Tokens:   tokenManager,
			Source:   source,
			Mirror:   synchronizer,
		}),
		Scans: handlers.NewScanHandler(handlers.ScanHandlerDeps{
			Analyzer:   scan.NewStubAnalyzer(),
			Scans:      scanRepo,
			History:    historyService,
			Dispatcher: dispatcher,
			Logger:     logger,
			Timeout:    cfg.Scan.AnalysisTimeout(),
			MaxBytes:   cfg.Scan.MaxImageBytes,
		}),
		Appointments: handlers.NewAppointmentHandler(appointmentService),
		Guard:        guardMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
