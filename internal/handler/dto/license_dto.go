package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/license"
)

type IssueLicenseRequest struct {
	TemplateID uuid.UUID `json:"templateId" binding:"required"`
	OrderID    uuid.UUID `json:"orderId" binding:"required"`
	Tier       string    `json:"tier" binding:"required,max=32"`
}

type LicenseResponse struct {
	ID                 uuid.UUID             `json:"id"`
	TemplateID         uuid.UUID             `json:"templateId"`
	OrderID            uuid.UUID             `json:"orderId"`
	Tier               license.Tier          `json:"tier"`
	Status             license.LicenseStatus `json:"status"`
	DownloadsCount     int                   `json:"downloadsCount"`
	MaxDownloads       int                   `json:"maxDownloads"`
	DownloadLimit      int                   `json:"downloadLimit"`
	RemainingDownloads int                   `json:"remainingDownloads"`
	ValidFrom          time.Time             `json:"validFrom"`
	ValidUntil         time.Time             `json:"validUntil"`
	Metadata           license.Metadata      `json:"metadata"`
	Template           *TemplateSummary      `json:"template,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

func NewLicenseResponse(lic *license.License) *LicenseResponse {
	return &LicenseResponse{
		ID:                 lic.ID,
		TemplateID:         lic.TemplateID,
		OrderID:            lic.OrderID,
		Tier:               lic.Tier,
		Status:             lic.Status,
		DownloadsCount:     lic.DownloadsCount,
		MaxDownloads:       lic.MaxDownloads,
		DownloadLimit:      lic.DownloadLimit,
		RemainingDownloads: lic.RemainingDownloads(),
		ValidFrom:          lic.ValidFrom,
		ValidUntil:         lic.ValidUntil,
		Metadata:           lic.Metadata,
		CreatedAt:          lic.CreatedAt,
		UpdatedAt:          lic.UpdatedAt,
	}
}

type UpdateLicenseStatusRequest struct {
	Status license.LicenseStatus `json:"status" binding:"required,oneof=ACTIVE EXPIRED SUSPENDED REVOKED"`
}
