package license

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type LicenseStatus string

const (
	StatusActive    LicenseStatus = "ACTIVE"
	StatusExpired   LicenseStatus = "EXPIRED"
	StatusSuspended LicenseStatus = "SUSPENDED"
	StatusRevoked   LicenseStatus = "REVOKED"
)

// Unlimited marks a quota column without a ceiling.
const Unlimited = -1

var (
	ErrNotFound          = errors.New("license not found")
	ErrUpdateFailed      = errors.New("license update failed")
	ErrDuplicate         = errors.New("license already exists for order and template")
	ErrQuotaUnavailable  = errors.New("license has no download slot left or is no longer active")
	ErrInvalidTransition = errors.New("license status transition not allowed")
	ErrStatusChanged     = errors.New("license status changed concurrently")
)

type License struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	UserID         uuid.UUID     `db:"user_id" json:"user_id"`
	TemplateID     uuid.UUID     `db:"template_id" json:"template_id"`
	OrderID        uuid.UUID     `db:"order_id" json:"order_id"`
	Tier           Tier          `db:"tier" json:"tier"`
	Status         LicenseStatus `db:"status" json:"status"`
	DownloadsCount int           `db:"downloads_count" json:"downloads_count"`
	MaxDownloads   int           `db:"max_downloads" json:"max_downloads"`
	DownloadLimit  int           `db:"download_limit" json:"download_limit"`
	ValidFrom      time.Time     `db:"valid_from" json:"valid_from"`
	ValidUntil     time.Time     `db:"valid_until" json:"valid_until"`
	Metadata       Metadata      `db:"metadata" json:"metadata"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// IsUnlimited reports whether the license has no download ceiling.
func (l *License) IsUnlimited() bool {
	return l.MaxDownloads == Unlimited
}

// QuotaReached is true once every permitted download has been minted.
func (l *License) QuotaReached() bool {
	return !l.IsUnlimited() && l.DownloadsCount >= l.MaxDownloads
}

// QuotaExceeded is true only when the counter went past its ceiling.
func (l *License) QuotaExceeded() bool {
	return !l.IsUnlimited() && l.DownloadsCount > l.MaxDownloads
}

// ExpiredAt reports whether the validity window has closed at t,
// independently of the stored status.
func (l *License) ExpiredAt(t time.Time) bool {
	return l.ValidUntil.Before(t)
}

// RemainingDownloads returns Unlimited for licenses without a ceiling.
func (l *License) RemainingDownloads() int {
	if l.IsUnlimited() {
		return Unlimited
	}
	if r := l.MaxDownloads - l.DownloadsCount; r > 0 {
		return r
	}
	return 0
}

// CanTransition validates administrative status changes. REVOKED is terminal.
func CanTransition(from, to LicenseStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusActive:
		return to == StatusExpired || to == StatusSuspended || to == StatusRevoked
	case StatusSuspended:
		return to == StatusActive || to == StatusRevoked || to == StatusExpired
	case StatusExpired:
		return to == StatusRevoked
	default:
		return false
	}
}

func IsValidStatus(s LicenseStatus) bool {
	switch s {
	case StatusActive, StatusExpired, StatusSuspended, StatusRevoked:
		return true
	}
	return false
}
