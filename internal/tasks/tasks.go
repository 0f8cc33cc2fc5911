package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/templatestore/license-service/internal/audit"
)

const (
	TypeLicenseExpire = "license:expire"
	TypeDownloadAudit = "download:audit"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

type ExpireLicensePayload struct {
	LicenseID uuid.UUID `json:"license_id"`
}

type DownloadAuditPayload struct {
	Event audit.Event `json:"event"`
}

// NewLicenseExpireTask asks the worker to persist EXPIRED for one license
// whose validity window was found closed at read time.
func NewLicenseExpireTask(licenseID uuid.UUID, opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(ExpireLicensePayload{LicenseID: licenseID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expire payload: %w", err)
	}

	allOpts := append([]asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.Unique(time.Hour),
		asynq.MaxRetry(5),
	}, opts...)

	return asynq.NewTask(TypeLicenseExpire, payloadBytes, allOpts...), nil
}

func NewDownloadAuditTask(evt audit.Event, opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(DownloadAuditPayload{Event: evt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	allOpts := append([]asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(10),
	}, opts...)

	return asynq.NewTask(TypeDownloadAudit, payloadBytes, allOpts...), nil
}
