package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/handler/middleware"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/service"
	"go.uber.org/zap"
)

type DownloadHandler struct {
	service *service.DownloadService
	logger  *zap.Logger
}

func NewDownloadHandler(service *service.DownloadService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		service: service,
		logger:  logger.Named("DownloadHandler"),
	}
}

func (h *DownloadHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.CreateDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create download request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	res, err := h.service.CreateDownload(c.Request.Context(), service.DownloadRequest{
		UserID:     userID,
		TemplateID: req.TemplateID,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	tpl := dto.NewTemplateSummary(res.Template)
	if tpl != nil {
		tpl.FileSize = nil
	}
	c.JSON(http.StatusCreated, dto.CreateDownloadResponse{
		DownloadID:         res.DownloadID,
		DownloadToken:      res.Token,
		DownloadURL:        res.DownloadURL,
		ExpiresAt:          res.ExpiresAt,
		RemainingDownloads: res.RemainingDownloads,
		Template:           tpl,
	})
}

func (h *DownloadHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	downloads, err := h.service.ListDownloads(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloads": dto.NewDownloadHistory(downloads)})
}

// Redeem is public; the token in the path is the credential.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	res, err := h.service.RedeemToken(c.Request.Context(), service.RedeemRequest{
		Token:     c.Param("token"),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.RedeemDownloadResponse{
		Template:    dto.NewTemplateSummary(res.Template),
		DownloadURL: res.DownloadURL,
		ExpiresAt:   res.ExpiresAt,
		Message:     res.Message,
	})
}
