package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// checkoutCreator is the slice of the billing service this handler needs.
type checkoutCreator interface {
	CreateCheckoutSession(ctx context.Context, planType, userID, email string) (string, error)
}

// BillingHandler handles checkout-related endpoints
type BillingHandler struct {
	billing  checkoutCreator
	validate *validator.Validate
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billing checkoutCreator, validate *validator.Validate) *BillingHandler {
	return &BillingHandler{billing: billing, validate: validate}
}

// RegisterRoutes mounts billing routes. Checkout creation is unauthenticated:
// the session itself grants nothing, and the completed purchase is attributed
// through the session metadata when the webhook lands.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("/create-checkout-session", h.createCheckoutSession)
}

// createCheckoutSession godoc
// @Summary Create a hosted checkout session
// @Description Creates a subscription-mode checkout session for the requested plan and returns its id.
// @Tags billing
// @Accept json
// @Produce json
// @Param checkout body dto.CheckoutSessionCreateDTO true "Checkout request"
// @Success 200 {object} dto.CheckoutSessionResponseDTO
// @Failure 400 {string} string "Invalid JSON payload, validation failed, or unknown plan"
// @Failure 500 {string} string "Failed to create checkout session"
// @Router /create-checkout-session [post]
func (h *BillingHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.CheckoutSessionCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	sessionID, err := h.billing.CreateCheckoutSession(r.Context(), req.PlanType, req.UserID, req.UserEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan), errors.Is(err, service.ErrInvalidRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create checkout session", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.CheckoutSessionResponseDTO{SessionID: sessionID})
}
