package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"
)

// SubscriptionHandler serves the caller's subscription state. The frontend
// polls this after checkout until the webhook-synced record appears.
type SubscriptionHandler struct {
	subSvc service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subSvc service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc}
}

// RegisterRoutes mounts subscription routes
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/me", authMw(http.HandlerFunc(h.getMySubscription)))
}

// getMySubscription godoc
// @Summary Get the caller's subscription
// @Description Returns the subscription record and derived entitlement for the authenticated user.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to retrieve subscription"
// @Router /subscriptions/me [get]
func (h *SubscriptionHandler) getMySubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	sub, entitled, err := h.subSvc.Entitlement(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve subscription", http.StatusInternalServerError)
		return
	}
	resp := dto.SubscriptionResponseDTO{Status: "none", Entitled: entitled}
	if sub != nil {
		resp.PlanType = sub.PlanType
		resp.Status = sub.Status
		resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		resp.CurrentPeriodStart = &sub.CurrentPeriodStart
		resp.CurrentPeriodEnd = &sub.CurrentPeriodEnd
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
