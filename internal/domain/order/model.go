package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCanceled  PaymentStatus = "CANCELED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var ErrNotFound = errors.New("order not found")

// Order is a checkout record. Amounts are in minor currency units.
type Order struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           uuid.UUID     `db:"user_id" json:"user_id"`
	PaymentSessionID string        `db:"payment_session_id" json:"payment_session_id"`
	PaymentIntentID  string        `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Status           Status        `db:"status" json:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"payment_status"`
	Items            []Item        `json:"items"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

type Item struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OrderID    uuid.UUID `db:"order_id" json:"order_id"`
	TemplateID uuid.UUID `db:"template_id" json:"template_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	UnitPrice  int64     `db:"unit_price" json:"unit_price"`
	TotalPrice int64     `db:"total_price" json:"total_price"`
}

// IsPaid reports whether licenses may be issued against the order.
func (o *Order) IsPaid() bool {
	return o.Status == StatusCompleted && o.PaymentStatus == PaymentSucceeded
}

// Covers reports whether the order may license the template. Orders without
// recorded line items cover any template.
func (o *Order) Covers(templateID uuid.UUID) bool {
	if len(o.Items) == 0 {
		return true
	}
	for _, it := range o.Items {
		if it.TemplateID == templateID {
			return true
		}
	}
	return false
}
