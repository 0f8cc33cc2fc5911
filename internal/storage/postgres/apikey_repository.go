package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/templatestore/license-service/internal/domain/apikey"
	"go.uber.org/zap"
)

const apiKeyColumns = `id, key_hash, prefix, description, is_enabled, created_at, last_used_at`

// APIKeyRepository stores the administrative keys. Rows are never deleted;
// revocation flips is_enabled so the audit of who held a key survives.
type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{db: db, logger: logger.Named("APIKeyRepository")}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*apikey.APIKey, error) {
	rows, _ := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1 AND is_enabled`, prefix)
	key, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[apikey.APIKey])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apikey.ErrAPIKeyNotFound
	case err != nil:
		r.logger.Error("Failed to load api key", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}
	return key, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO api_keys (key_hash, prefix, description, is_enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		key.KeyHash, key.Prefix, key.Description, key.IsEnabled,
	).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			r.logger.Warn("API key prefix already taken", zap.String("constraint", constraint))
			return uuid.Nil, fmt.Errorf("api key constraint violation (%s)", constraint)
		}
		r.logger.Error("Failed to insert api key", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating api key: %w", err)
	}
	return key.ID, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*apikey.APIKey, error) {
	rows, _ := r.db.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	keys, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[apikey.APIKey])
	if err != nil {
		r.logger.Error("Failed to list api keys", zap.Error(err))
		return nil, fmt.Errorf("db error listing api keys: %w", err)
	}
	return keys, nil
}

func (r *APIKeyRepository) Disable(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET is_enabled = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error disabling api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apikey.ErrAPIKeyNotFound
	}
	return nil
}

// UpdateLastUsed never moves the timestamp backwards, so out-of-order
// touches from concurrent requests are harmless.
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $1
		WHERE id = $2 AND (last_used_at IS NULL OR last_used_at < $1)`,
		lastUsed, id)
	if err != nil {
		return fmt.Errorf("db error updating last used time: %w", err)
	}
	return nil
}
