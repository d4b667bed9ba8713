/**
 * @description
 * This file contains the HTTP handlers for the subscription-service.
 * It hosts the primary entry point for RevenueCat webhook deliveries and
 * the read endpoints for a user's subscription flags.
 *
 * Key features:
 * - Security: validates the webhook's bearer credential against the
 *   configured shared secret with a constant-time comparison.
 * - Parsing: decodes the JSON payload into strongly-typed structs,
 *   tolerating both the flat and nested provider envelopes.
 * - Dispatch: hands validated events to the service layer and maps
 *   domain errors onto the HTTP taxonomy (401/400/404/500).
 *
 * Unknown event types are acknowledged with 200 so the provider's delivery
 * system does not retry them.
 */
package api

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loopmind/subscription-service/internal/app"
	"github.com/loopmind/subscription-service/internal/domain"
	"github.com/loopmind/subscription-service/internal/store"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service       app.Service
	webhookSecret string
	logger        *slog.Logger
}

// NewHandler creates a new Handler with the given service and webhook secret.
func NewHandler(service app.Service, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret, logger: logger}
}

// handleWebhook processes an inbound RevenueCat webhook delivery.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	if !h.hasValidCredential(r.Header.Get("Authorization")) {
		h.logger.Warn("webhook rejected: invalid bearer credential",
			"request_id", requestID, "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	payload, err := domain.ParseWebhookPayload(body)
	if err != nil {
		h.logger.Warn("webhook rejected: malformed payload", "request_id", requestID, "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	if payload.Event == "" || payload.AppUserID == "" {
		h.logger.Warn("webhook rejected: missing event or app_user_id",
			"request_id", requestID, "event", payload.Event, "app_user_id", payload.AppUserID)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	h.logger.Info("received webhook event",
		"request_id", requestID, "event", payload.Event, "app_user_id", payload.AppUserID)

	if _, err := h.service.ProcessEvent(r.Context(), payload); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webhook processing failed", "request_id", requestID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// hasValidCredential compares the supplied bearer credential against the
// configured secret in constant time.
func (h *Handler) hasValidCredential(authHeader string) bool {
	if authHeader == "" {
		return false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return false
	}

	return hmac.Equal([]byte(token), []byte(h.webhookSecret))
}

// handleCheckSubscription returns the subscription flags for the user in
// the URL path. Public, read-only.
func (h *Handler) handleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	status, err := h.service.CheckSubscription(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// handleStatus returns the subscription flags for the authenticated user.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.service.CheckSubscription(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
