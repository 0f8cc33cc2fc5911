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

type LicenseHandler struct {
	service *service.LicenseService
	logger  *zap.Logger
}

func NewLicenseHandler(service *service.LicenseService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.Named("LicenseHandler"),
	}
}

func (h *LicenseHandler) Issue(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.IssueLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind issue license request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	lic, err := h.service.IssueLicense(c.Request.Context(), service.IssueLicenseInput{
		UserID:     userID,
		OrderID:    req.OrderID,
		TemplateID: req.TemplateID,
		Tier:       req.Tier,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("License issued via handler", zap.String("id", lic.ID.String()))
	c.JSON(http.StatusCreated, dto.NewLicenseResponse(lic))
}

func (h *LicenseHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	views, err := h.service.ListLicenses(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]*dto.LicenseResponse, len(views))
	for i, v := range views {
		out[i] = dto.NewLicenseResponse(v.License)
		out[i].Template = dto.NewTemplateSummary(v.Template)
	}
	c.JSON(http.StatusOK, gin.H{"licenses": out})
}

func (h *LicenseHandler) UpdateStatus(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for status update", zap.String("id_param", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: invalid license id format", ierr.ErrValidation))
		return
	}

	var req dto.UpdateLicenseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind status update request body", zap.String("id", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	lic, err := h.service.UpdateLicenseStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("License status updated via handler", zap.String("id", idStr), zap.String("new_status", string(req.Status)))
	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}
