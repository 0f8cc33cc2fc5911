package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"go.uber.org/zap"
)

const downloadColumns = `
            id, license_id, user_id, template_id, download_token, download_url,
            ip_address, user_agent, expires_at, is_expired, downloaded_at`

type DownloadRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDownloadRepository(db *pgxpool.Pool, logger *zap.Logger) *DownloadRepository {
	return &DownloadRepository{
		db:     db,
		logger: logger.Named("DownloadRepository"),
	}
}

var _ download.Repository = (*DownloadRepository)(nil)

// CreateWithQuota reserves one download slot and inserts the record in a
// single transaction. It returns the license's downloads_count after the
// reservation.
func (r *DownloadRepository) CreateWithQuota(ctx context.Context, d *download.Download, now time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin download transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	reserve := `
        UPDATE licenses
        SET downloads_count = downloads_count + 1, updated_at = NOW()
        WHERE id = $1
          AND status = $2
          AND valid_until >= $3
          AND (max_downloads = $4 OR downloads_count < max_downloads)
        RETURNING downloads_count
    `
	var count int
	err = tx.QueryRow(ctx, reserve, d.LicenseID, license.StatusActive, now, license.Unlimited).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, license.ErrQuotaUnavailable
	}
	if err != nil {
		r.logger.Error("Failed to reserve download slot", zap.String("license_id", d.LicenseID.String()), zap.Error(err))
		return 0, fmt.Errorf("database error on reserve download slot: %w", err)
	}

	insert := `
        INSERT INTO downloads (
            license_id, user_id, template_id, download_token, download_url,
            ip_address, user_agent, expires_at, is_expired, downloaded_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        ) RETURNING id
    `
	err = tx.QueryRow(ctx, insert,
		d.LicenseID,
		d.UserID,
		d.TemplateID,
		d.DownloadToken,
		d.DownloadURL,
		d.IPAddress,
		d.UserAgent,
		d.ExpiresAt,
		d.IsExpired,
		d.DownloadedAt,
	).Scan(&d.ID)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			r.logger.Warn("Download token collision", zap.String("constraint", constraint))
			return 0, download.ErrTokenConflict
		}
		r.logger.Error("Failed to insert download", zap.String("license_id", d.LicenseID.String()), zap.Error(err))
		return 0, fmt.Errorf("database error on create download: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit download transaction: %w", err)
	}

	r.logger.Info("Download created",
		zap.String("id", d.ID.String()),
		zap.String("license_id", d.LicenseID.String()),
		zap.Int("downloads_count", count),
	)
	return count, nil
}

func (r *DownloadRepository) FindByToken(ctx context.Context, token string) (*download.Download, error) {
	query := `SELECT` + downloadColumns + `
        FROM downloads
        WHERE download_token = $1
    `
	return r.scanDownload(r.db.QueryRow(ctx, query, token))
}

func (r *DownloadRepository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE downloads SET is_expired = TRUE WHERE id = $1 AND is_expired = FALSE`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark download expired", zap.String("id", id.String()), zap.Error(err))
		return false, fmt.Errorf("database error on expire download: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *DownloadRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*download.Download, error) {
	query := `SELECT` + downloadColumns + `
        FROM downloads
        WHERE user_id = $1
        ORDER BY downloaded_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query downloads of user", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on list downloads: %w", err)
	}
	defer rows.Close()

	downloads := make([]*download.Download, 0)
	for rows.Next() {
		d, err := r.scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on list downloads: %w", err)
	}
	return downloads, nil
}

func (r *DownloadRepository) scanDownload(row pgx.Row) (*download.Download, error) {
	var d download.Download
	err := row.Scan(
		&d.ID,
		&d.LicenseID,
		&d.UserID,
		&d.TemplateID,
		&d.DownloadToken,
		&d.DownloadURL,
		&d.IPAddress,
		&d.UserAgent,
		&d.ExpiresAt,
		&d.IsExpired,
		&d.DownloadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, download.ErrNotFound
		}
		r.logger.Error("Failed to scan download row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &d, nil
}
