package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/plan"
)

// PlanHandler serves the public plan listing. It reads the same registry the
// checkout session factory prices from, so the two cannot disagree.
type PlanHandler struct{}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// RegisterRoutes mounts plan routes
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("/plans", h.listPlans)
}

// listPlans godoc
// @Summary List subscription plans
// @Description Returns all purchasable plans with prices and feature lists.
// @Tags billing
// @Produce json
// @Success 200 {array} plan.Plan
// @Router /plans [get]
func (h *PlanHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plan.List())
}
