package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/templatestore/license-service/internal/audit"
	"go.uber.org/zap"
)

// Dispatcher enqueues background work produced by request handling.
type Dispatcher struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewDispatcher(client *asynq.Client, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger.Named("TaskDispatcher")}
}

func (d *Dispatcher) EnqueueLicenseExpire(ctx context.Context, licenseID uuid.UUID) error {
	task, err := NewLicenseExpireTask(licenseID)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue license expire task: %w", err)
	}
	d.logger.Debug("Enqueued license expire task", zap.String("task_id", info.ID), zap.String("license_id", licenseID.String()))
	return nil
}

func (d *Dispatcher) EnqueueDownloadAudit(ctx context.Context, evt audit.Event) error {
	task, err := NewDownloadAuditTask(evt)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue download audit task: %w", err)
	}
	return nil
}

// NopDispatcher drops every task. It backs deployments without a worker.
type NopDispatcher struct{}

func (NopDispatcher) EnqueueLicenseExpire(context.Context, uuid.UUID) error { return nil }
func (NopDispatcher) EnqueueDownloadAudit(context.Context, audit.Event) error {
	return nil
}
