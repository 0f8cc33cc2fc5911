package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/order"
)

type OrderItemResponse struct {
	ID         uuid.UUID        `json:"id"`
	TemplateID uuid.UUID        `json:"templateId"`
	Quantity   int              `json:"quantity"`
	UnitPrice  string           `json:"unitPrice"`
	TotalPrice string           `json:"totalPrice"`
	Template   *TemplateSummary `json:"template,omitempty"`
}

type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	PaymentSessionID string              `json:"paymentSessionId"`
	Amount           string              `json:"amount"`
	Currency         string              `json:"currency"`
	Status           order.Status        `json:"status"`
	PaymentStatus    order.PaymentStatus `json:"paymentStatus"`
	Items            []OrderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"createdAt"`
}
