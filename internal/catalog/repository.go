package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListFilter narrows and orders a product listing.
type ListFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	// Sort is one of: newest, price-asc, price-desc, name-asc, name-desc.
	Sort string
}

type Repository interface {
	// Upsert inserts or fully replaces the mirror row for p.ID. Replaying
	// the same snapshot is a no-op beyond refreshing updated_at.
	Upsert(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const productColumns = `id, name, COALESCE(slug, ''), COALESCE(description, ''), price,
       COALESCE(category, ''), COALESCE(image_url, ''), COALESCE(alt, ''),
       stock, is_featured, COALESCE(sku, ''), updated_at`

func (r *repo) Upsert(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, slug, description, price, category, image_url, alt, stock, is_featured, sku, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, NULLIF($11, ''), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			alt = EXCLUDED.alt,
			stock = EXCLUDED.stock,
			is_featured = EXCLUDED.is_featured,
			sku = EXCLUDED.sku,
			updated_at = NOW()
	`, p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.ImageURL, p.Alt, p.Stock, p.IsFeatured, p.SKU)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Category,
			&p.ImageURL, &p.Alt, &p.Stock, &p.IsFeatured, &p.SKU, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderClause(f.Sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Category,
			&p.ImageURL, &p.Alt, &p.Stock, &p.IsFeatured, &p.SKU, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return products, nil
}

func orderClause(sort string) string {
	switch sort {
	case "price-asc":
		return "price ASC"
	case "price-desc":
		return "price DESC"
	case "name-asc":
		return "name ASC"
	case "name-desc":
		return "name DESC"
	default: // newest
		return "updated_at DESC"
	}
}
