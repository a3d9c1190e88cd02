package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saqibmurtaza/ai-mart/internal/checkout"
)

type CheckoutHandler struct {
	reconciler *checkout.Reconciler
	logger     *log.Logger
}

func NewCheckoutHandler(reconciler *checkout.Reconciler, logger *log.Logger) *CheckoutHandler {
	return &CheckoutHandler{reconciler: reconciler, logger: logger}
}

// CreateOrder opens a provider-side order for the caller's cart total and
// returns the provider order id for the client to approve.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	providerOrderID, err := h.reconciler.CreateProviderOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		h.logger.Printf("create provider order for %s: %v", userID, err)
		writeError(w, http.StatusBadGateway, "failed to create payment order")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"orderId": providerOrderID})
}

// CaptureOrder is the synchronous finalization entry point.
func (h *CheckoutHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	providerOrderID := chi.URLParam(r, "orderId")
	if providerOrderID == "" {
		writeError(w, http.StatusBadRequest, "missing orderId")
		return
	}
	userID := requestUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	orderID, err := h.reconciler.Capture(ctx, userID, providerOrderID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrPaymentNotCompleted):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "failed",
				"message": "payment was not completed",
			})
		case errors.Is(err, checkout.ErrInconsistentState):
			// The cart is gone and no order matches: most likely the webhook
			// already finalized and this client's state is stale.
			writeJSON(w, http.StatusConflict, map[string]string{
				"status":  "failed",
				"message": "cart already processed or empty",
			})
		default:
			h.logger.Printf("capture %s for %s: %v", providerOrderID, userID, err)
			writeError(w, http.StatusBadGateway, "failed to capture payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"orderId": orderID,
		"message": "Order placed successfully",
	})
}
