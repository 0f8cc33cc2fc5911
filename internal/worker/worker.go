package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/templatestore/license-service/internal/config"
	"github.com/templatestore/license-service/internal/tasks"
	"go.uber.org/zap"
)

// queueWeights favours expiry writes over the audit trail.
var queueWeights = map[string]int{
	tasks.QueueDefault: 6,
	tasks.QueueLow:     2,
}

func RedisConnOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// Handlers groups the task processors served by the worker. A nil handler
// leaves its task type unrouted.
type Handlers struct {
	Expire *tasks.LicenseExpireHandler
	Audit  *tasks.DownloadAuditHandler
}

func NewServeMux(h Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if h.Expire != nil {
		mux.Handle(tasks.TypeLicenseExpire, h.Expire)
	}
	if h.Audit != nil {
		mux.Handle(tasks.TypeDownloadAudit, h.Audit)
	}
	return mux
}

// RunWorkers serves queued tasks until ctx is cancelled, then drains.
func RunWorkers(ctx context.Context, cfg *config.Config, h Handlers, logger *zap.Logger) error {
	log := logger.Named("Worker")
	srv := asynq.NewServer(RedisConnOpt(&cfg.Redis), asynq.Config{
		Concurrency:  cfg.Worker.Concurrency,
		Queues:       queueWeights,
		IsFailure:    isFailure,
		ErrorHandler: failureLogger(log),
		Logger:       log.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	})

	log.Info("Starting task worker", zap.Int("concurrency", cfg.Worker.Concurrency))
	if err := srv.Start(NewServeMux(h)); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	<-ctx.Done()
	log.Info("Draining task worker")
	srv.Shutdown()
	return nil
}

// isFailure keeps cancellations during shutdown out of the failure stats.
func isFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func failureLogger(log *zap.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		log.Error("Task failed",
			zap.String("task_type", task.Type()),
			zap.Int("retry", retried),
			zap.Int("max_retry", maxRetry),
			zap.Bool("final", retried >= maxRetry || errors.Is(err, asynq.SkipRetry)),
			zap.Error(err),
		)
	})
}
