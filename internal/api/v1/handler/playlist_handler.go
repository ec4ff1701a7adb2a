package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// PlaylistHandler handles playlist group endpoints. Reads are public with
// optional auth (entitlement unlocks premium groups); writes require auth.
type PlaylistHandler struct {
	catalog  service.CatalogService
	validate *validator.Validate
}

// NewPlaylistHandler creates a new PlaylistHandler
func NewPlaylistHandler(catalog service.CatalogService, validate *validator.Validate) *PlaylistHandler {
	return &PlaylistHandler{catalog: catalog, validate: validate}
}

// RegisterRoutes mounts playlist group routes
func (h *PlaylistHandler) RegisterRoutes(mux *http.ServeMux, authMw, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/playlist-groups", h.byMethod(authMw, optionalAuthMw, h.listGroups, h.createGroup))
	mux.Handle("/playlist-groups/thumbnail-upload", authMw(http.HandlerFunc(h.thumbnailUpload)))
	mux.Handle("/playlist-groups/", h.byMethod(authMw, optionalAuthMw, h.getGroup, h.mutateGroup))
}

// byMethod sends GETs through the optional-auth chain and everything else
// through the required-auth chain.
func (h *PlaylistHandler) byMethod(authMw, optionalAuthMw func(http.Handler) http.Handler, get, other http.HandlerFunc) http.Handler {
	getChain := optionalAuthMw(get)
	otherChain := authMw(other)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			getChain.ServeHTTP(w, r)
			return
		}
		otherChain.ServeHTTP(w, r)
	})
}

func callerID(r *http.Request) string {
	userID, _ := r.Context().Value(middleware.UserContextKey).(string)
	return userID
}

func groupResponse(g *model.PlaylistGroup) dto.PlaylistGroupResponseDTO {
	return dto.PlaylistGroupResponseDTO{
		ID:           g.ID,
		Creator:      g.Creator,
		Description:  g.Description,
		Tags:         g.Tags,
		ThumbnailURL: g.ThumbnailURL,
		Access:       g.Access,
		Locked:       g.Access == model.AccessPremium && len(g.Playlists) == 0,
		Playlists:    g.Playlists,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// listGroups godoc
// @Summary List playlist groups
// @Description Lists playlist groups, optionally narrowed by tag. Premium groups are locked for callers without an entitlement.
// @Tags playlist-groups
// @Produce json
// @Param tag query string false "Tag filter"
// @Success 200 {array} dto.PlaylistGroupResponseDTO
// @Failure 500 {string} string "Failed to list playlist groups"
// @Router /playlist-groups [get]
func (h *PlaylistHandler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.ListGroups(r.Context(), r.URL.Query().Get("tag"), callerID(r))
	if err != nil {
		http.Error(w, "Failed to list playlist groups", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.PlaylistGroupResponseDTO, 0, len(groups))
	for i := range groups {
		resp = append(resp, groupResponse(&groups[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// createGroup godoc
// @Summary Create a playlist group
// @Tags playlist-groups
// @Accept json
// @Produce json
// @Param group body dto.PlaylistGroupCreateDTO true "Playlist group creation request"
// @Success 201 {object} dto.PlaylistGroupResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to create playlist group"
// @Router /playlist-groups [post]
func (h *PlaylistHandler) createGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if callerID(r) == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PlaylistGroupCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	group := &model.PlaylistGroup{
		Creator:      req.Creator,
		Description:  req.Description,
		Tags:         req.Tags,
		ThumbnailURL: req.ThumbnailURL,
		Access:       req.Access,
		Playlists:    req.Playlists,
	}
	if err := h.catalog.CreateGroup(r.Context(), group); err != nil {
		http.Error(w, "Failed to create playlist group", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(groupResponse(group))
}

// getGroup godoc
// @Summary Get a playlist group
// @Tags playlist-groups
// @Produce json
// @Param groupId path string true "Playlist group ID"
// @Success 200 {object} dto.PlaylistGroupResponseDTO
// @Failure 404 {string} string "Playlist group not found"
// @Failure 500 {string} string "Failed to retrieve playlist group"
// @Router /playlist-groups/{groupId} [get]
func (h *PlaylistHandler) getGroup(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/playlist-groups/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	group, err := h.catalog.GetGroup(r.Context(), id, callerID(r))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Playlist group not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve playlist group", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupResponse(group))
}

// mutateGroup dispatches PUT and DELETE on /playlist-groups/{id}.
func (h *PlaylistHandler) mutateGroup(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/playlist-groups/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if callerID(r) == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.updateGroup(w, r, id)
	case http.MethodDelete:
		h.deleteGroup(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// updateGroup godoc
// @Summary Update a playlist group
// @Tags playlist-groups
// @Accept json
// @Produce json
// @Param groupId path string true "Playlist group ID"
// @Param group body dto.PlaylistGroupUpdateDTO true "Playlist group update request"
// @Success 200 {object} dto.PlaylistGroupResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Playlist group not found"
// @Failure 500 {string} string "Failed to update playlist group"
// @Router /playlist-groups/{groupId} [put]
func (h *PlaylistHandler) updateGroup(w http.ResponseWriter, r *http.Request, id string) {
	var req dto.PlaylistGroupUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	group, err := h.catalog.GetGroup(r.Context(), id, callerID(r))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Playlist group not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve playlist group", http.StatusInternalServerError)
		return
	}
	if req.Creator != nil {
		group.Creator = *req.Creator
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.Tags != nil {
		group.Tags = req.Tags
	}
	if req.ThumbnailURL != nil {
		group.ThumbnailURL = req.ThumbnailURL
	}
	if req.Access != nil {
		group.Access = *req.Access
	}
	if req.Playlists != nil {
		group.Playlists = req.Playlists
	}
	if err := h.catalog.UpdateGroup(r.Context(), group); err != nil {
		http.Error(w, "Failed to update playlist group", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupResponse(group))
}

// deleteGroup godoc
// @Summary Delete a playlist group
// @Tags playlist-groups
// @Param groupId path string true "Playlist group ID"
// @Success 204 {string} string "No Content"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to delete playlist group"
// @Router /playlist-groups/{groupId} [delete]
func (h *PlaylistHandler) deleteGroup(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.catalog.DeleteGroup(r.Context(), id); err != nil {
		http.Error(w, "Failed to delete playlist group", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// thumbnailUpload godoc
// @Summary Request a thumbnail upload URL
// @Description Returns a presigned PUT URL for uploading a playlist group thumbnail.
// @Tags playlist-groups
// @Accept json
// @Produce json
// @Param request body dto.ThumbnailUploadRequestDTO true "Upload request"
// @Success 200 {object} dto.ThumbnailUploadResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to generate upload URL"
// @Router /playlist-groups/thumbnail-upload [post]
func (h *PlaylistHandler) thumbnailUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if callerID(r) == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.ThumbnailUploadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	key, url, err := h.catalog.ThumbnailUploadURL(r.Context(), req.Filename)
	if err != nil {
		http.Error(w, "Failed to generate upload URL", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ThumbnailUploadResponseDTO{Key: key, UploadURL: url})
}
