package download

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("download not found")
	ErrTokenConflict = errors.New("download token already in use")
)

// Download is a single-use, time-limited credential minted against a license.
type Download struct {
	ID            uuid.UUID `db:"id" json:"id"`
	LicenseID     uuid.UUID `db:"license_id" json:"license_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	TemplateID    uuid.UUID `db:"template_id" json:"template_id"`
	DownloadToken string    `db:"download_token" json:"download_token"`
	DownloadURL   string    `db:"download_url" json:"download_url"`
	IPAddress     string    `db:"ip_address" json:"ip_address"`
	UserAgent     string    `db:"user_agent" json:"user_agent"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
	IsExpired     bool      `db:"is_expired" json:"is_expired"`
	DownloadedAt  time.Time `db:"downloaded_at" json:"downloaded_at"`
}

// LapsedAt reports whether the token can no longer be redeemed at t, either
// because it was consumed or because its lifetime ended.
func (d *Download) LapsedAt(t time.Time) bool {
	return d.IsExpired || d.ExpiresAt.Before(t)
}
