package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/order"
	"github.com/templatestore/license-service/internal/ierr"
	"go.uber.org/zap"
)

type OrderItemView struct {
	Item     order.Item
	Template *catalog.Template
}

type OrderView struct {
	Order *order.Order
	Items []OrderItemView
}

type OrderService struct {
	orders    order.Repository
	templates catalog.Repository
	logger    *zap.Logger
}

func NewOrderService(orders order.Repository, templates catalog.Repository, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		templates: templates,
		logger:    logger.Named("OrderService"),
	}
}

// GetOrderBySession returns the caller's order for a payment session. Orders
// of other users are reported as not found.
func (s *OrderService) GetOrderBySession(ctx context.Context, userID uuid.UUID, sessionID string) (*OrderView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ierr.ErrValidation)
	}

	ord, err := s.orders.FindBySessionID(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, fmt.Errorf("%w: order for session", ierr.ErrNotFound)
		}
		s.logger.Error("Failed to load order by session", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error loading order: %w", err)
	}

	view := &OrderView{Order: ord, Items: make([]OrderItemView, 0, len(ord.Items))}
	for _, it := range ord.Items {
		item := OrderItemView{Item: it}
		tpl, err := s.templates.FindTemplateByID(ctx, it.TemplateID)
		switch {
		case err == nil:
			item.Template = tpl
		case errors.Is(err, catalog.ErrTemplateNotFound):
		default:
			return nil, fmt.Errorf("repository error loading template: %w", err)
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}
