package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/templatestore/license-service/internal/domain/order"
	"go.uber.org/zap"
)

const orderColumns = `
            id, user_id, payment_session_id, payment_intent_id, amount, currency,
            status, payment_status, created_at, updated_at`

type OrderRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewOrderRepository(db *pgxpool.Pool, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger.Named("OrderRepository"),
	}
}

var _ order.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `SELECT` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	return r.findOne(ctx, query, id)
}

func (r *OrderRepository) FindBySessionID(ctx context.Context, userID uuid.UUID, sessionID string) (*order.Order, error) {
	query := `SELECT` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND payment_session_id = $2
    `
	return r.findOne(ctx, query, userID, sessionID)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	var o order.Order
	var intentID sql.NullString

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.UserID,
		&o.PaymentSessionID,
		&intentID,
		&o.Amount,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		r.logger.Error("Failed to scan order row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	if intentID.Valid {
		o.PaymentIntentID = intentID.String
	}

	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *OrderRepository) items(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	query := `
        SELECT id, order_id, template_id, quantity, unit_price, total_price
        FROM order_items
        WHERE order_id = $1
    `
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to query order items", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on list order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.TemplateID, &it.Quantity, &it.UnitPrice, &it.TotalPrice)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("database scan error on order items: %w", err)
	}
	return items, nil
}
