package model

import "time"

// Access levels for playlist groups.
const (
	AccessFree    = "free"
	AccessPremium = "premium"
)

// Playlist is a single external playlist link inside a group.
type Playlist struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
	Link        string `json:"link"`
}

// PlaylistGroup is a curated set of playlists published under a theme.
// Playlists are stored as an embedded document, mirroring the catalog's
// persisted shape.
type PlaylistGroup struct {
	ID           string     `db:"id" json:"id"`
	Creator      string     `db:"creator" json:"creator"`
	Description  string     `db:"description" json:"description"`
	Tags         []string   `db:"tags" json:"tags"`
	ThumbnailURL *string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Access       string     `db:"access" json:"access"`
	Playlists    []Playlist `db:"playlists" json:"playlists"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter is a browse-page filter entry.
type Filter struct {
	ID       string `db:"id" json:"id"`
	Category string `db:"category" json:"category"`
	Tag      string `db:"tag" json:"tag"`
}

// LearnVideo is a lesson entry on the learning page, ordered by position.
type LearnVideo struct {
	ID          string `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	VimeoURL    string `db:"vimeo_url" json:"vimeo_url"`
	Position    int    `db:"position" json:"position"`
}
