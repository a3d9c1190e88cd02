package promo

import "time"

type DynamicPromo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Discount    string     `json:"discount,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	IsActive    bool       `json:"is_active"`
}
