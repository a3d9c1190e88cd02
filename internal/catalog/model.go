package catalog

import (
	"encoding/json"
	"strings"
	"time"
)

// Product is one catalog mirror row, keyed by the normalized CMS document id.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Alt         string    `json:"alt,omitempty"`
	Stock       int       `json:"stock"`
	IsFeatured  bool      `json:"isFeatured"`
	SKU         string    `json:"sku,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

const draftPrefix = "drafts."

// NormalizeID strips the CMS draft prefix so a draft and its published
// document share one mirror row.
func NormalizeID(id string) string {
	return strings.TrimPrefix(id, draftPrefix)
}

// CategoryLabel accepts the two shapes the CMS emits for a product category:
// a plain string label, or a nested object carrying a "title" field. Either
// way it resolves to the plain label at ingestion so consumers never branch
// on shape.
type CategoryLabel string

func (c *CategoryLabel) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*c = CategoryLabel(label)
		return nil
	}

	var obj struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = CategoryLabel(obj.Title)
	return nil
}

// SlugField accepts a bare slug string or the CMS object form
// {"current": "the-slug"}.
type SlugField string

func (s *SlugField) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = SlugField(plain)
		return nil
	}

	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = SlugField(obj.Current)
	return nil
}
