package download

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateWithQuota increments the owning license's download counter and
	// inserts the download as one atomic unit. It fails with
	// license.ErrQuotaUnavailable when the license is not ACTIVE, not valid at
	// now, or has no slot left, and with ErrTokenConflict when the token is
	// already taken. Neither write is applied on failure.
	CreateWithQuota(ctx context.Context, d *Download, now time.Time) (int, error)
	FindByToken(ctx context.Context, token string) (*Download, error)
	// MarkExpired consumes the download and reports whether this call was
	// the one that flipped it.
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Download, error)
}
