package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/license"
	"go.uber.org/zap"
)

type LicenseExpireHandler struct {
	repo   license.Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewLicenseExpireHandler(repo license.Repository, logger *zap.Logger) *LicenseExpireHandler {
	return &LicenseExpireHandler{
		repo:   repo,
		now:    time.Now,
		logger: logger.Named("LicenseExpireHandler"),
	}
}

func (h *LicenseExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeLicenseExpire {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpireLicensePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for license expiration task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	flipped, err := h.repo.ExpireIfLapsed(ctx, p.LicenseID, h.now().UTC())
	if err != nil {
		h.logger.Error("Failed to expire license", zap.String("license_id", p.LicenseID.String()), zap.Error(err))
		return err
	}

	if flipped {
		h.logger.Info("License marked expired", zap.String("license_id", p.LicenseID.String()))
	} else {
		h.logger.Debug("License already settled, nothing to expire", zap.String("license_id", p.LicenseID.String()))
	}
	return nil
}

type EventWriter interface {
	WriteEvent(ctx context.Context, evt audit.Event) error
}

type DownloadAuditHandler struct {
	writer EventWriter
	logger *zap.Logger
}

func NewDownloadAuditHandler(writer EventWriter, logger *zap.Logger) *DownloadAuditHandler {
	return &DownloadAuditHandler{
		writer: writer,
		logger: logger.Named("DownloadAuditHandler"),
	}
}

func (h *DownloadAuditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeDownloadAudit {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p DownloadAuditPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for download audit task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	return h.writer.WriteEvent(ctx, p.Event)
}
