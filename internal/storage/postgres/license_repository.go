package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/templatestore/license-service/internal/domain/license"
	"go.uber.org/zap"
)

const licenseColumns = `
            id, user_id, template_id, order_id, tier, status, downloads_count,
            max_downloads, download_limit, valid_from, valid_until, metadata,
            created_at, updated_at`

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	query := `
        INSERT INTO licenses (
            user_id, template_id, order_id, tier, status, downloads_count,
            max_downloads, download_limit, valid_from, valid_until, metadata
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        ) RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		lic.UserID,
		lic.TemplateID,
		lic.OrderID,
		lic.Tier,
		lic.Status,
		lic.DownloadsCount,
		lic.MaxDownloads,
		lic.DownloadLimit,
		lic.ValidFrom,
		lic.ValidUntil,
		lic.Metadata,
	).Scan(&insertedID)

	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			r.logger.Warn("Attempted to issue a duplicate license",
				zap.String("order_id", lic.OrderID.String()),
				zap.String("template_id", lic.TemplateID.String()),
				zap.String("constraint", constraint),
			)
			return uuid.Nil, license.ErrDuplicate
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Info("License created successfully", zap.String("id", insertedID.String()))
	return insertedID, nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	query := `SELECT` + licenseColumns + `
        FROM licenses
        WHERE id = $1
    `
	return r.scanLicense(r.db.QueryRow(ctx, query, id))
}

func (r *LicenseRepository) FindLatestActive(ctx context.Context, userID, templateID uuid.UUID) (*license.License, error) {
	query := `SELECT` + licenseColumns + `
        FROM licenses
        WHERE user_id = $1 AND template_id = $2 AND status = $3
        ORDER BY created_at DESC
        LIMIT 1
    `
	return r.scanLicense(r.db.QueryRow(ctx, query, userID, templateID, license.StatusActive))
}

func (r *LicenseRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*license.License, error) {
	query := `SELECT` + licenseColumns + `
        FROM licenses
        WHERE user_id = $1 AND status = $2
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID, license.StatusActive)
	if err != nil {
		r.logger.Error("Failed to query licenses of user", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)
	for rows.Next() {
		lic, err := r.scanLicense(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, lic)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating license rows", zap.Error(err))
		return nil, fmt.Errorf("database iteration error on list licenses: %w", err)
	}

	return licenses, nil
}

func (r *LicenseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to license.LicenseStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE licenses SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		r.logger.Error("Failed to update license status", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", license.ErrUpdateFailed, err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM licenses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", license.ErrUpdateFailed, err)
	}
	if !exists {
		return license.ErrNotFound
	}
	r.logger.Warn("License status changed before update", zap.String("id", id.String()), zap.String("expected", string(from)))
	return license.ErrStatusChanged
}

func (r *LicenseRepository) ExpireIfLapsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
        UPDATE licenses SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3 AND valid_until < $4
    `
	cmdTag, err := r.db.Exec(ctx, query, license.StatusExpired, id, license.StatusActive, now)
	if err != nil {
		r.logger.Error("Failed to expire license", zap.String("id", id.String()), zap.Error(err))
		return false, fmt.Errorf("%w: %v", license.ErrUpdateFailed, err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := row.Scan(
		&lic.ID,
		&lic.UserID,
		&lic.TemplateID,
		&lic.OrderID,
		&lic.Tier,
		&lic.Status,
		&lic.DownloadsCount,
		&lic.MaxDownloads,
		&lic.DownloadLimit,
		&lic.ValidFrom,
		&lic.ValidUntil,
		&lic.Metadata,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &lic, nil
}
