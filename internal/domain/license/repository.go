package license

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, license *License) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*License, error)
	// FindLatestActive returns the most recently issued ACTIVE license the
	// user holds for the template.
	FindLatestActive(ctx context.Context, userID, templateID uuid.UUID) (*License, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*License, error)
	// UpdateStatus moves a license from one status to another. It returns
	// ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to LicenseStatus) error
	// ExpireIfLapsed flips an ACTIVE license whose validity ended before now
	// to EXPIRED and reports whether it did.
	ExpireIfLapsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}
