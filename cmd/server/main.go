package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/config"
	"github.com/templatestore/license-service/internal/domain/apikey"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/domain/order"
	"github.com/templatestore/license-service/internal/filestore"
	"github.com/templatestore/license-service/internal/handler"
	"github.com/templatestore/license-service/internal/metrics"
	"github.com/templatestore/license-service/internal/ratelimit"
	"github.com/templatestore/license-service/internal/service"
	"github.com/templatestore/license-service/internal/storage/cache"
	"github.com/templatestore/license-service/internal/storage/memstorage"
	"github.com/templatestore/license-service/internal/storage/postgres"
	"github.com/templatestore/license-service/internal/storage/redis"
	"github.com/templatestore/license-service/internal/tasks"
	"github.com/templatestore/license-service/internal/worker"
	"github.com/templatestore/license-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	licenses  license.Repository
	downloads download.Repository
	orders    order.Repository
	templates catalog.Repository
	apiKeys   apikey.Repository
}

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger("license-service", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		repos   repositories
		dbPool  *pgxpool.Pool
		auditDB *sql.DB
	)
	switch cfg.Storage.Driver {
	case "memory":
		sugarLogger.Warn("Using in-memory storage; data is lost on restart")
		store := memstorage.NewStore()
		repos = repositories{
			licenses:  store.Licenses(),
			downloads: store.Downloads(),
			orders:    store.Orders(),
			templates: store.Templates(),
			apiKeys:   store.APIKeys(),
		}
	case "postgres":
		dbPool, err = postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
		if err != nil {
			sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbPool.Close()

		auditDB = postgres.NewSQLDB(dbPool)
		defer auditDB.Close()

		repos = repositories{
			licenses:  postgres.NewLicenseRepository(dbPool, appLogger),
			downloads: postgres.NewDownloadRepository(dbPool, appLogger),
			orders:    postgres.NewOrderRepository(dbPool, appLogger),
			templates: postgres.NewTemplateRepository(dbPool, appLogger),
			apiKeys:   postgres.NewAPIKeyRepository(dbPool, appLogger),
		}
	default:
		sugarLogger.Fatalf("Unknown storage driver %q", cfg.Storage.Driver)
	}

	templates, err := cache.NewTemplateRepository(repos.templates, cfg.Cache.TemplateSize, cache.DefaultTemplateTTL, m, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to build template cache: %v", err)
	}

	files, err := filestore.New(appCtx, cfg.Files, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to configure file resolver: %v", err)
	}

	// The audit task needs the SQL store, so the worker runs only on postgres.
	workerEnabled := cfg.Worker.Enabled && auditDB != nil

	var redisClient *goredis.Client
	if cfg.RateLimit.Enabled || workerEnabled {
		redisClient, err = redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
		if err != nil {
			sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	var dispatcher service.TaskDispatcher = tasks.NopDispatcher{}
	if workerEnabled {
		asynqClient := asynq.NewClient(worker.RedisConnOpt(&cfg.Redis))
		defer asynqClient.Close()
		dispatcher = tasks.NewDispatcher(asynqClient, appLogger)
	}

	authService, err := service.NewAuthService(&cfg.Auth, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to configure authentication: %v", err)
	}
	apiKeyService := service.NewAPIKeyService(repos.apiKeys, appLogger)
	entitlementService := service.NewEntitlementService(repos.licenses, dispatcher, m, appLogger)
	licenseService := service.NewLicenseService(repos.licenses, repos.orders, templates, cfg.Licenses.PurchaseMethod, m, appLogger)
	downloadService := service.NewDownloadService(
		entitlementService,
		repos.licenses,
		repos.downloads,
		templates,
		files,
		dispatcher,
		m,
		service.DownloadServiceConfig{
			TokenTTL:         cfg.Downloads.TokenTTL,
			MaxTokenAttempts: cfg.Downloads.MaxTokenAttempts,
		},
		appLogger,
	)
	orderService := service.NewOrderService(repos.orders, templates, appLogger)

	deps := handler.RouterDeps{
		Licenses:  handler.NewLicenseHandler(licenseService, appLogger),
		Downloads: handler.NewDownloadHandler(downloadService, appLogger),
		Orders:    handler.NewOrderHandler(orderService, appLogger),
		APIKeys:   handler.NewAPIKeyHandler(apiKeyService, appLogger),
		Tokens:    authService,
		Keys:      apiKeyService,
		RedeemLimit: ratelimit.LimitConfig{
			Rate:   cfg.RateLimit.RedeemRate,
			Window: cfg.RateLimit.RedeemWindow,
		},
		AllowOrigins:   cfg.Server.AllowOrigins,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
	}
	if redisClient != nil {
		deps.Health = handler.NewHealthHandler(dbPool, redisClient, appLogger)
	} else {
		deps.Health = handler.NewHealthHandler(dbPool, nil, appLogger)
	}
	if cfg.RateLimit.Enabled {
		deps.Limiter = ratelimit.NewLimiter(redisClient, cfg.RateLimit.Salt)
	}
	router := handler.NewRouter(deps, appLogger)

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	if workerEnabled {
		handlers := worker.Handlers{
			Expire: tasks.NewLicenseExpireHandler(repos.licenses, appLogger),
			Audit:  tasks.NewDownloadAuditHandler(audit.NewWriter(auditDB, appLogger), appLogger),
		}
		g.Go(func() error {
			if err := worker.RunWorkers(groupCtx, cfg, handlers, appLogger); err != nil {
				sugarLogger.Error("Asynq worker failed", zap.Error(err))
				return fmt.Errorf("asynq worker error: %w", err)
			}
			sugarLogger.Info("Asynq workers finished gracefully.")
			return nil
		})
	} else {
		sugarLogger.Info("Background worker disabled; expiry and audit tasks are dropped.")
	}

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
