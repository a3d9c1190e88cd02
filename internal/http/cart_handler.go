package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saqibmurtaza/ai-mart/internal/cart"
	"github.com/saqibmurtaza/ai-mart/internal/catalog"
)

type CartHandler struct {
	repo   cart.Repository
	lookup catalog.Lookup
}

func NewCartHandler(repo cart.Repository, lookup catalog.Lookup) *CartHandler {
	return &CartHandler{repo: repo, lookup: lookup}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var it cart.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if it.ProductID == "" || it.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "product_id and positive quantity required")
		return
	}
	if it.UserID == "" {
		it.UserID = requestUser(r)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Reject unknown products up front; the stored price is the catalog's,
	// not whatever the client sent.
	price, err := h.lookup.PriceOf(ctx, it.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to validate product")
		return
	}
	it.Price = price

	if err := h.repo.Upsert(ctx, &it); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add item to cart")
		return
	}

	writeJSON(w, http.StatusOK, it)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.repo.ItemsFor(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if items == nil {
		items = []cart.Item{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Cart retrieved",
		"cart":    items,
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	productID := chi.URLParam(r, "productId")
	if userID == "" || productID == "" {
		writeError(w, http.StatusBadRequest, "missing userId or productId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Remove(ctx, userID, productID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove item")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Clear(ctx, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}
