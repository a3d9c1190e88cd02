package promo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *DynamicPromo) error
	List(ctx context.Context) ([]DynamicPromo, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, p *DynamicPromo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dynamic_promo (id, title, description, discount, valid_until, image_url, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7)
	`, p.ID, p.Title, p.Description, p.Discount, p.ValidUntil, p.ImageURL, p.IsActive)
	if err != nil {
		return fmt.Errorf("insert dynamic_promo: %w", err)
	}
	return nil
}

func (r *repo) List(ctx context.Context) ([]DynamicPromo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), COALESCE(discount, ''), valid_until, COALESCE(image_url, ''), is_active
		FROM dynamic_promo
	`)
	if err != nil {
		return nil, fmt.Errorf("select dynamic_promo: %w", err)
	}
	defer rows.Close()

	var promos []DynamicPromo
	for rows.Next() {
		var p DynamicPromo
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Discount, &p.ValidUntil, &p.ImageURL, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan dynamic_promo: %w", err)
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return promos, nil
}
