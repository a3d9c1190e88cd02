package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/saqibmurtaza/ai-mart/internal/catalog"
	"github.com/saqibmurtaza/ai-mart/internal/checkout"
	"github.com/saqibmurtaza/ai-mart/internal/payment"
	"github.com/saqibmurtaza/ai-mart/internal/signature"
)

const (
	sanitySignatureHeader = "sanity-webhook-signature"
	maxWebhookBody        = 1 << 20 // 1MB
)

// WebhookVerifier authenticates provider webhook deliveries;
// payment.Provider satisfies it.
type WebhookVerifier interface {
	VerifyWebhook(ctx context.Context, headers http.Header, body []byte) (bool, error)
}

type WebhookHandler struct {
	sync       *catalog.SyncService
	reconciler *checkout.Reconciler
	verifier   WebhookVerifier

	sanitySecret string
	tolerance    time.Duration
	logger       *log.Logger
}

func NewWebhookHandler(
	sync *catalog.SyncService,
	reconciler *checkout.Reconciler,
	verifier WebhookVerifier,
	sanitySecret string,
	tolerance time.Duration,
	logger *log.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		sync:         sync,
		reconciler:   reconciler,
		verifier:     verifier,
		sanitySecret: sanitySecret,
		tolerance:    tolerance,
		logger:       logger,
	}
}

// SanityWebhook ingests CMS document change notifications into the product
// mirror. Verification runs on the raw body bytes; the signature covers them
// exactly as sent.
func (h *WebhookHandler) SanityWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := signature.Verify(h.sanitySecret, body, r.Header.Get(sanitySignatureHeader), h.tolerance); err != nil {
		var sigErr *signature.InvalidError
		if errors.As(err, &sigErr) {
			h.logger.Printf("sanity webhook rejected: %s", sigErr.Reason)
			writeError(w, http.StatusForbidden, "invalid signature")
			return
		}
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.sync.Handle(ctx, body)
	if err != nil {
		h.logger.Printf("sanity webhook: %v", err)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	switch res.Action {
	case "none":
		writeJSON(w, http.StatusOK, map[string]any{"message": "no action taken"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok",
			"result":  res,
		})
	}
}

// PayPalWebhook is the asynchronous finalization entry point. Anything but a
// verification rejection is acknowledged with 200: the provider retries
// non-2xx responses indefinitely, and every recoverable condition here is
// either already handled or better handled by the capture path.
func (h *WebhookHandler) PayPalWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	ok, err := h.verifier.VerifyWebhook(ctx, r.Header, body)
	if err != nil {
		// Can't decide authenticity; a non-2xx makes the provider redeliver
		// once the verification API recovers.
		h.logger.Printf("paypal webhook verification error: %v", err)
		writeError(w, http.StatusBadGateway, "verification unavailable")
		return
	}
	if !ok {
		h.logger.Printf("paypal webhook rejected: signature verification failed")
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	var ev payment.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.logger.Printf("paypal webhook: malformed event body: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.reconciler.HandleProviderEvent(ctx, ev); err != nil {
		// Logged and acknowledged: a retry storm after the condition is
		// recorded helps nobody.
		h.logger.Printf("paypal webhook %s: %v", ev.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
