package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/saqibmurtaza/ai-mart/internal/promo"
)

type PromoHandler struct {
	repo promo.Repository
}

func NewPromoHandler(repo promo.Repository) *PromoHandler {
	return &PromoHandler{repo: repo}
}

func (h *PromoHandler) CreateDynamicPromo(w http.ResponseWriter, r *http.Request) {
	var p promo.DynamicPromo
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Create(ctx, &p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create promo")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *PromoHandler) ListDynamicPromos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	promos, err := h.repo.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list promos")
		return
	}
	if promos == nil {
		promos = []promo.DynamicPromo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"promos": promos})
}
