package cart

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	ItemsFor(ctx context.Context, userID string) ([]Item, error)
	// Upsert adds the item, incrementing quantity when the (user, product)
	// row already exists.
	Upsert(ctx context.Context, it *Item) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) ItemsFor(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, product_id, quantity, price, name,
                COALESCE(image_url, ''), COALESCE(slug, ''), COALESCE(sku, '')
         FROM cart_items WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.Price,
			&it.Name, &it.ImageURL, &it.Slug, &it.SKU); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return items, nil
}

func (r *repo) Upsert(ctx context.Context, it *Item) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, price, name, image_url, slug, sku)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			price = EXCLUDED.price
		RETURNING quantity
	`, it.UserID, it.ProductID, it.Quantity, it.Price, it.Name, it.ImageURL, it.Slug, it.SKU).
		Scan(&it.Quantity)
	if err != nil {
		return fmt.Errorf("upsert cart_item: %w", err)
	}
	return nil
}

func (r *repo) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	return nil
}

func (r *repo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
