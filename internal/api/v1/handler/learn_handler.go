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

// LearnHandler handles learning video endpoints.
type LearnHandler struct {
	catalog  service.CatalogService
	validate *validator.Validate
}

// NewLearnHandler creates a new LearnHandler
func NewLearnHandler(catalog service.CatalogService, validate *validator.Validate) *LearnHandler {
	return &LearnHandler{catalog: catalog, validate: validate}
}

// RegisterRoutes mounts learning video routes. Listing is public.
func (h *LearnHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("/learn-videos", h.handleVideos(authMw))
	mux.Handle("/learn-videos/", authMw(http.HandlerFunc(h.handleVideo)))
}

func (h *LearnHandler) handleVideos(authMw func(http.Handler) http.Handler) http.HandlerFunc {
	create := authMw(http.HandlerFunc(h.createVideo))
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.listVideos(w, r)
		case http.MethodPost:
			create.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func videoResponse(v model.LearnVideo) dto.LearnVideoResponseDTO {
	return dto.LearnVideoResponseDTO{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VimeoURL:    v.VimeoURL,
		Position:    v.Position,
	}
}

// listVideos godoc
// @Summary List learning videos
// @Description Returns all learning videos ordered by position.
// @Tags learn-videos
// @Produce json
// @Success 200 {array} dto.LearnVideoResponseDTO
// @Failure 500 {string} string "Failed to list learning videos"
// @Router /learn-videos [get]
func (h *LearnHandler) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.catalog.ListVideos(r.Context())
	if err != nil {
		http.Error(w, "Failed to list learning videos", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.LearnVideoResponseDTO, 0, len(videos))
	for _, v := range videos {
		resp = append(resp, videoResponse(v))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// createVideo godoc
// @Summary Create a learning video
// @Tags learn-videos
// @Accept json
// @Produce json
// @Param video body dto.LearnVideoCreateDTO true "Learning video creation request"
// @Success 201 {object} dto.LearnVideoResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to create learning video"
// @Router /learn-videos [post]
func (h *LearnHandler) createVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.LearnVideoCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	v := &model.LearnVideo{
		Title:       req.Title,
		Description: req.Description,
		VimeoURL:    req.VimeoURL,
		Position:    req.Position,
	}
	if err := h.catalog.CreateVideo(r.Context(), v); err != nil {
		http.Error(w, "Failed to create learning video", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(videoResponse(*v))
}

func (h *LearnHandler) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/learn-videos/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.updateVideo(w, r, id)
	case http.MethodDelete:
		h.deleteVideo(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// updateVideo godoc
// @Summary Update a learning video
// @Tags learn-videos
// @Accept json
// @Produce json
// @Param videoId path string true "Learning video ID"
// @Param video body dto.LearnVideoUpdateDTO true "Learning video update request"
// @Success 200 {object} dto.LearnVideoResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Learning video not found"
// @Failure 500 {string} string "Failed to update learning video"
// @Router /learn-videos/{videoId} [put]
func (h *LearnHandler) updateVideo(w http.ResponseWriter, r *http.Request, id string) {
	var req dto.LearnVideoUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	videos, err := h.catalog.ListVideos(r.Context())
	if err != nil {
		http.Error(w, "Failed to retrieve learning videos", http.StatusInternalServerError)
		return
	}
	var current *model.LearnVideo
	for i := range videos {
		if videos[i].ID == id {
			current = &videos[i]
			break
		}
	}
	if current == nil {
		http.Error(w, "Learning video not found", http.StatusNotFound)
		return
	}
	if req.Title != nil {
		current.Title = *req.Title
	}
	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.VimeoURL != nil {
		current.VimeoURL = *req.VimeoURL
	}
	if req.Position != nil {
		current.Position = *req.Position
	}
	if err := h.catalog.UpdateVideo(r.Context(), current); err != nil {
		http.Error(w, "Failed to update learning video", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(videoResponse(*current))
}

// deleteVideo godoc
// @Summary Delete a learning video
// @Tags learn-videos
// @Param videoId path string true "Learning video ID"
// @Success 204 {string} string "No Content"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to delete learning video"
// @Router /learn-videos/{videoId} [delete]
func (h *LearnHandler) deleteVideo(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.catalog.DeleteVideo(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete learning video", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
