package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// FilterHandler handles browse filter endpoints.
type FilterHandler struct {
	catalog  service.CatalogService
	validate *validator.Validate
}

// NewFilterHandler creates a new FilterHandler
func NewFilterHandler(catalog service.CatalogService, validate *validator.Validate) *FilterHandler {
	return &FilterHandler{catalog: catalog, validate: validate}
}

// RegisterRoutes mounts filter routes. Listing is public.
func (h *FilterHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("/filters", h.handleFilters(authMw))
	mux.Handle("/filters/reset", authMw(http.HandlerFunc(h.resetFilters)))
	mux.Handle("/filters/", authMw(http.HandlerFunc(h.deleteFilter)))
}

func (h *FilterHandler) handleFilters(authMw func(http.Handler) http.Handler) http.HandlerFunc {
	create := authMw(http.HandlerFunc(h.createFilter))
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.listFilters(w, r)
		case http.MethodPost:
			create.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func filterResponse(f model.Filter) dto.FilterResponseDTO {
	return dto.FilterResponseDTO{ID: f.ID, Category: f.Category, Tag: f.Tag}
}

// listFilters godoc
// @Summary List browse filters
// @Tags filters
// @Produce json
// @Success 200 {array} dto.FilterResponseDTO
// @Failure 500 {string} string "Failed to list filters"
// @Router /filters [get]
func (h *FilterHandler) listFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.catalog.ListFilters(r.Context())
	if err != nil {
		http.Error(w, "Failed to list filters", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.FilterResponseDTO, 0, len(filters))
	for _, f := range filters {
		resp = append(resp, filterResponse(f))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// createFilter godoc
// @Summary Create a browse filter
// @Tags filters
// @Accept json
// @Produce json
// @Param filter body dto.FilterCreateDTO true "Filter creation request"
// @Success 201 {object} dto.FilterResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to create filter"
// @Router /filters [post]
func (h *FilterHandler) createFilter(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.FilterCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	f := &model.Filter{Category: req.Category, Tag: req.Tag}
	if err := h.catalog.CreateFilter(r.Context(), f); err != nil {
		http.Error(w, "Failed to create filter", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(filterResponse(*f))
}

// resetFilters godoc
// @Summary Reset filters to defaults
// @Tags filters
// @Produce json
// @Success 200 {array} dto.FilterResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to reset filters"
// @Router /filters/reset [post]
func (h *FilterHandler) resetFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	filters, err := h.catalog.ResetFilters(r.Context())
	if err != nil {
		http.Error(w, "Failed to reset filters", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.FilterResponseDTO, 0, len(filters))
	for _, f := range filters {
		resp = append(resp, filterResponse(f))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// deleteFilter godoc
// @Summary Delete a browse filter
// @Tags filters
// @Param filterId path string true "Filter ID"
// @Success 204 {string} string "No Content"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to delete filter"
// @Router /filters/{filterId} [delete]
func (h *FilterHandler) deleteFilter(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/filters/")
	if r.Method != http.MethodDelete || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.catalog.DeleteFilter(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete filter", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
