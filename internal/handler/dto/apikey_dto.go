package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAPIKeyRequest struct {
	Description string `json:"description" binding:"required,max=255"`
}

// CreateAPIKeyResponse is the only place the plaintext key is ever returned.
type CreateAPIKeyResponse struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	Prefix      string    `json:"prefix"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type APIKeyResponse struct {
	ID          uuid.UUID  `json:"id"`
	Prefix      string     `json:"prefix"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}
