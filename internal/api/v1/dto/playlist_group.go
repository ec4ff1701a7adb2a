package dto

import (
	"time"

	"app/internal/model"
)

// PlaylistGroupCreateDTO is used for incoming playlist group creation requests.
type PlaylistGroupCreateDTO struct {
	Creator      string           `json:"creator" validate:"required"`
	Description  string           `json:"description"`
	Tags         []string         `json:"tags"`
	ThumbnailURL *string          `json:"thumbnail_url,omitempty"`
	Access       string           `json:"access" validate:"omitempty,oneof=free premium"`
	Playlists    []model.Playlist `json:"playlists" validate:"dive"`
}

// PlaylistGroupUpdateDTO is used for incoming playlist group update requests.
type PlaylistGroupUpdateDTO struct {
	Creator      *string          `json:"creator,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	ThumbnailURL *string          `json:"thumbnail_url,omitempty"`
	Access       *string          `json:"access,omitempty" validate:"omitempty,oneof=free premium"`
	Playlists    []model.Playlist `json:"playlists,omitempty" validate:"dive"`
}

// PlaylistGroupResponseDTO is returned in API responses for playlist groups.
// Playlists is empty when the group is premium and the caller lacks an
// entitlement.
type PlaylistGroupResponseDTO struct {
	ID           string           `json:"id"`
	Creator      string           `json:"creator"`
	Description  string           `json:"description"`
	Tags         []string         `json:"tags"`
	ThumbnailURL *string          `json:"thumbnail_url,omitempty"`
	Access       string           `json:"access"`
	Locked       bool             `json:"locked"`
	Playlists    []model.Playlist `json:"playlists,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ThumbnailUploadRequestDTO asks for a presigned upload slot.
type ThumbnailUploadRequestDTO struct {
	Filename string `json:"filename" validate:"required"`
}

// ThumbnailUploadResponseDTO carries the presigned PUT URL and the object
// key to store back on the group.
type ThumbnailUploadResponseDTO struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}
