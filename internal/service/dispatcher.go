package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/audit"
)

// TaskDispatcher hands follow-up work to the background worker. Dispatch
// failures are logged and never fail the request that produced them.
type TaskDispatcher interface {
	EnqueueLicenseExpire(ctx context.Context, licenseID uuid.UUID) error
	EnqueueDownloadAudit(ctx context.Context, evt audit.Event) error
}
