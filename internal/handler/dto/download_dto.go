package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/download"
)

type CreateDownloadRequest struct {
	TemplateID uuid.UUID `json:"templateId" binding:"required"`
}

type CreateDownloadResponse struct {
	DownloadID         uuid.UUID        `json:"downloadId"`
	DownloadToken      string           `json:"downloadToken"`
	DownloadURL        string           `json:"downloadUrl"`
	ExpiresAt          time.Time        `json:"expiresAt"`
	RemainingDownloads int              `json:"remainingDownloads"`
	Template           *TemplateSummary `json:"template"`
}

type RedeemDownloadResponse struct {
	Template    *TemplateSummary `json:"template"`
	DownloadURL string           `json:"downloadUrl"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Message     string           `json:"message"`
}

// DownloadHistoryItem omits the token and file URL; both are credentials.
type DownloadHistoryItem struct {
	ID           uuid.UUID `json:"id"`
	LicenseID    uuid.UUID `json:"licenseId"`
	TemplateID   uuid.UUID `json:"templateId"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsExpired    bool      `json:"isExpired"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

func NewDownloadHistory(downloads []*download.Download) []*DownloadHistoryItem {
	out := make([]*DownloadHistoryItem, len(downloads))
	for i, d := range downloads {
		out[i] = &DownloadHistoryItem{
			ID:           d.ID,
			LicenseID:    d.LicenseID,
			TemplateID:   d.TemplateID,
			ExpiresAt:    d.ExpiresAt,
			IsExpired:    d.IsExpired,
			DownloadedAt: d.DownloadedAt,
		}
	}
	return out
}
