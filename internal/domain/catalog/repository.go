package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	FindTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error)
}
