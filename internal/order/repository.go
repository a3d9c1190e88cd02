package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicatePayment means an order for the same payment_order_id was already
// committed by the other finalization path. Callers treat it as "already
// finalized", not as a failure.
var ErrDuplicatePayment = errors.New("order already exists for payment order id")

type Repository interface {
	// CreateFinalized inserts the order with its items and clears the owning
	// user's cart rows in a single transaction. A unique-constraint rejection
	// on payment_order_id is returned as ErrDuplicatePayment.
	CreateFinalized(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByPaymentOrderID(ctx context.Context, paymentOrderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const pqUniqueViolation = "23505"

func (r *repo) CreateFinalized(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var paymentOrderID sql.NullString
	if o.PaymentOrderID != "" {
		paymentOrderID = sql.NullString{String: o.PaymentOrderID, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, payment_order_id, user_id, shipping_address, total_amount, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, paymentOrderID, o.UserID, o.ShippingAddress, o.TotalAmount, o.Status, o.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price)
             VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), o.ID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	// Consuming the cart is part of the same atomic unit: a failure anywhere
	// before commit leaves neither a partial order nor a half-empty cart.
	_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.getOne(ctx, `SELECT id, payment_order_id, user_id, shipping_address, total_amount, status, created_at
         FROM orders WHERE id = $1`, orderID)
}

func (r *repo) GetByPaymentOrderID(ctx context.Context, paymentOrderID string) (*Order, error) {
	return r.getOne(ctx, `SELECT id, payment_order_id, user_id, shipping_address, total_amount, status, created_at
         FROM orders WHERE payment_order_id = $1`, paymentOrderID)
}

func (r *repo) getOne(ctx context.Context, query, arg string) (*Order, error) {
	var o Order
	var paymentOrderID sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&o.ID, &paymentOrderID, &o.UserID, &o.ShippingAddress, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.PaymentOrderID = paymentOrderID.String

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity, price
         FROM order_items WHERE order_id = $1`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payment_order_id, user_id, shipping_address, total_amount, status, created_at
         FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var paymentOrderID sql.NullString
		if err := rows.Scan(&o.ID, &paymentOrderID, &o.UserID, &o.ShippingAddress, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.PaymentOrderID = paymentOrderID.String
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		itemRows, err := r.db.QueryContext(ctx,
			`SELECT product_id, quantity, price FROM order_items WHERE order_id = $1`,
			orders[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("select items: %w", err)
		}
		for itemRows.Next() {
			var it Item
			if err := itemRows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan item: %w", err)
			}
			orders[i].Items = append(orders[i].Items, it)
		}
		itemRows.Close()
	}

	return orders, nil
}
