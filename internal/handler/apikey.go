package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/handler/middleware"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/service"
	"go.uber.org/zap"
)

// APIKeyHandler manages the keys that guard administrative routes. It is
// itself mounted behind API key auth; the first key comes from licensectl.
type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create api key request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	created, err := h.service.CreateAPIKey(c.Request.Context(), req.Description)
	if err != nil {
		_ = c.Error(err)
		return
	}

	issuer, _ := middleware.GetAPIKeyID(c)
	h.logger.Info("API key issued",
		zap.String("id", created.ID.String()),
		zap.String("issued_by", issuer.String()),
	)
	c.JSON(http.StatusCreated, created)
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.service.ListAPIKeys(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKeys": keys})
}

// Revoke disables a key. A caller cannot revoke the key it authenticated
// with, which would otherwise lock the last administrator out.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for revoke api key", zap.String("id_param", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: invalid api key id format", ierr.ErrValidation))
		return
	}

	if current, ok := middleware.GetAPIKeyID(c); ok && current == id {
		_ = c.Error(fmt.Errorf("%w: cannot revoke the key used for this request", ierr.ErrConflict))
		return
	}

	if err := h.service.RevokeAPIKey(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("API key revoked", zap.String("id", id.String()))
	c.Status(http.StatusNoContent)
}
