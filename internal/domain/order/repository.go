package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindBySessionID(ctx context.Context, userID uuid.UUID, sessionID string) (*Order, error)
}
