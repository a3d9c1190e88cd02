package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saqibmurtaza/ai-mart/internal/catalog"
)

type ProductHandler struct {
	repo catalog.Repository
}

func NewProductHandler(repo catalog.Repository) *ProductHandler {
	return &ProductHandler{repo: repo}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := catalog.ListFilter{
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	var err error
	if f.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid minPrice")
		return
	}
	if f.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid maxPrice")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	products, err := h.repo.List(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := catalog.NormalizeID(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.repo.GetByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func parsePrice(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
