package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/saqibmurtaza/ai-mart/internal/order"
)

const headerUserID = "X-User-Id"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestUser resolves the calling user from the X-User-Id header, falling
// back to the guest sentinel for unauthenticated checkout.
func requestUser(r *http.Request) string {
	if uid := strings.TrimSpace(r.Header.Get(headerUserID)); uid != "" {
		return uid
	}
	return order.GuestUserID
}
