package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/handler/middleware"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service *service.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.Named("OrderHandler"),
	}
}

func (h *OrderHandler) GetBySession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	view, err := h.service.GetOrderBySession(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(view))
}

func newOrderResponse(v *service.OrderView) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		ID:               v.Order.ID,
		PaymentSessionID: v.Order.PaymentSessionID,
		Amount:           catalog.FormatMinorUnits(v.Order.Amount),
		Currency:         v.Order.Currency,
		Status:           v.Order.Status,
		PaymentStatus:    v.Order.PaymentStatus,
		Items:            make([]dto.OrderItemResponse, len(v.Items)),
		CreatedAt:        v.Order.CreatedAt,
	}
	for i, it := range v.Items {
		resp.Items[i] = dto.OrderItemResponse{
			ID:         it.Item.ID,
			TemplateID: it.Item.TemplateID,
			Quantity:   it.Item.Quantity,
			UnitPrice:  catalog.FormatMinorUnits(it.Item.UnitPrice),
			TotalPrice: catalog.FormatMinorUnits(it.Item.TotalPrice),
			Template:   dto.NewTemplateSummary(it.Template),
		}
	}
	return resp
}
