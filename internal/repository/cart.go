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

// CartRepository persists carts read-modify-write: services load the
// whole cart, mutate the item list and store it back. No version
// checks; concurrent writes from the same user are last-write-wins.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []model.CartItem) error
	ClearByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		cart.ID = uuid.New()
		cart.UserID = userID
		err = r.pool.QueryRow(ctx,
			`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
			 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
			 RETURNING id, created_at, updated_at`,
			cart.ID, cart.UserID,
		).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return cart, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT course_id, title, old_price, new_price, status, image, quantity
		 FROM cart_items WHERE cart_id = $1 ORDER BY position`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.CourseID, &item.Title, &item.OldPrice, &item.NewPrice,
			&item.Status, &item.Image, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

func (r *pgCartRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []model.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	for i, item := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO cart_items (cart_id, course_id, title, old_price, new_price, status, image, quantity, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			cartID, item.CourseID, item.Title, item.OldPrice, item.NewPrice,
			item.Status, item.Image, item.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgCartRepo) ClearByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if err := r.ClearByUserID(ctx, userID); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
