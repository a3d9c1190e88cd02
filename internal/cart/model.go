package cart

// Item is one cart row, keyed by (user, product). Name, price and the image
// fields are denormalized from the catalog at add-time and serve only as a
// display fallback when the catalog lookup misses; checkout always
// reauthorizes prices against the catalog.
type Item struct {
	UserID    string  `json:"user_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	SKU       string  `json:"sku,omitempty"`
}
