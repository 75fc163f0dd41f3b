package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextskill/course-commerce-api/internal/model"
)

type OrderRepository interface {
	// Create persists the order and its item snapshot in one transaction.
	// The partial unique index on (user_id, idempotency_key) makes a
	// duplicate checkout collide here rather than double-charge.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByUserAndKey(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*model.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	// UpdatePayment moves the payment lifecycle fields; empty strings
	// leave the stored value untouched.
	UpdatePayment(ctx context.Context, id uuid.UUID, status model.OrderStatus, paymentID, method, signature string) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListByUserAndStatus(ctx context.Context, userID uuid.UUID, status model.OrderStatus) ([]model.Order, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, code, user_id, name, email, billing_address, whatsapp, amount, tax,
	idempotency_key, gateway_order_id, gateway_payment_id, gateway_signature,
	payment_type, payment_method, status, created_at, updated_at`

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, code, user_id, name, email, billing_address, whatsapp, amount, tax,
		                     idempotency_key, gateway_order_id, gateway_payment_id, gateway_signature,
		                     payment_type, payment_method, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.Code, order.UserID, order.Name, order.Email, order.BillingAddress,
		order.Whatsapp, order.Amount, order.Tax, order.IdempotencyKey, order.GatewayOrderID,
		order.GatewayPaymentID, order.GatewaySignature, order.PaymentType, order.PaymentMethod,
		order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, course_id, title, image, price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.Items[i].ID, order.ID, order.Items[i].CourseID, order.Items[i].Title,
			order.Items[i].Image, order.Items[i].Price, order.Items[i].Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *pgOrderRepo) GetByUserAndKey(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*model.Order, error) {
	return r.getOne(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`,
		userID, idempotencyKey)
}

func (r *pgOrderRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return r.getOne(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (r *pgOrderRepo) getOne(ctx context.Context, query string, args ...any) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&order.ID, &order.Code, &order.UserID, &order.Name, &order.Email, &order.BillingAddress,
		&order.Whatsapp, &order.Amount, &order.Tax, &order.IdempotencyKey, &order.GatewayOrderID,
		&order.GatewayPaymentID, &order.GatewaySignature, &order.PaymentType, &order.PaymentMethod,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, image, price, quantity FROM order_items WHERE order_id = $1`,
		order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.CourseID, &item.Title, &item.Image, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (r *pgOrderRepo) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET gateway_order_id = $2, updated_at = NOW() WHERE id = $1`,
		id, gatewayOrderID,
	)
	if err != nil {
		return fmt.Errorf("set gateway order id: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, status model.OrderStatus, paymentID, method, signature string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2,
		        gateway_payment_id = COALESCE(NULLIF($3, ''), gateway_payment_id),
		        payment_method = COALESCE(NULLIF($4, ''), payment_method),
		        gateway_signature = COALESCE(NULLIF($5, ''), gateway_signature),
		        updated_at = NOW()
		 WHERE id = $1`,
		id, status, paymentID, method, signature,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListByUserAndStatus(ctx context.Context, userID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`,
		userID, status)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Code, &o.UserID, &o.Name, &o.Email, &o.BillingAddress,
			&o.Whatsapp, &o.Amount, &o.Tax, &o.IdempotencyKey, &o.GatewayOrderID,
			&o.GatewayPaymentID, &o.GatewaySignature, &o.PaymentType, &o.PaymentMethod,
			&o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemRows, err := r.pool.Query(ctx,
		`SELECT id, order_id, course_id, title, image, price, quantity
		 FROM order_items WHERE order_id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item model.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.CourseID, &item.Title,
			&item.Image, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, itemRows.Err()
}

func (r *pgOrderRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE user_id = $1)`, userID,
	); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	return tx.Commit(ctx)
}
