package dto

import (
	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/catalog"
)

type TemplateSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	FileSize *string   `json:"fileSize,omitempty"`
}

func NewTemplateSummary(t *catalog.Template) *TemplateSummary {
	if t == nil {
		return nil
	}
	return &TemplateSummary{ID: t.ID, Title: t.Title, Slug: t.Slug, FileSize: t.FileSize}
}
