package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"go.uber.org/zap"
)

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger.Named("TemplateRepository"),
	}
}

var _ catalog.Repository = (*TemplateRepository)(nil)

func (r *TemplateRepository) FindTemplateByID(ctx context.Context, id uuid.UUID) (*catalog.Template, error) {
	query := `
        SELECT id, title, slug, price, sale_price, file_size, category_id
        FROM templates
        WHERE id = $1
    `
	var t catalog.Template
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Slug,
		&t.Price,
		&t.SalePrice,
		&t.FileSize,
		&t.CategoryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrTemplateNotFound
		}
		r.logger.Error("Failed to find template", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &t, nil
}
