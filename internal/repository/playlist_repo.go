package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository defines methods for accessing playlist groups.
type PlaylistRepository interface {
	ListGroups(ctx context.Context, tag string) ([]model.PlaylistGroup, error)
	GetGroupByID(ctx context.Context, id string) (*model.PlaylistGroup, error)
	CreateGroup(ctx context.Context, g *model.PlaylistGroup) error
	UpdateGroup(ctx context.Context, g *model.PlaylistGroup) error
	DeleteGroup(ctx context.Context, id string) error
}

type playlistRepo struct {
	pool *pgxpool.Pool
}

// NewPlaylistRepo creates a new PlaylistRepository.
func NewPlaylistRepo(pool *pgxpool.Pool) PlaylistRepository {
	return &playlistRepo{pool: pool}
}

const playlistGroupColumns = `id, creator, description, tags, thumbnail_url, access, playlists, created_at, updated_at`

func scanPlaylistGroup(row pgx.Row) (*model.PlaylistGroup, error) {
	var g model.PlaylistGroup
	var rawPlaylists []byte
	err := row.Scan(
		&g.ID,
		&g.Creator,
		&g.Description,
		&g.Tags,
		&g.ThumbnailURL,
		&g.Access,
		&rawPlaylists,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawPlaylists, &g.Playlists); err != nil {
		return nil, fmt.Errorf("unmarshal playlists for group %s: %w", g.ID, err)
	}
	return &g, nil
}

// ListGroups returns playlist groups, newest first, optionally narrowed to a tag.
func (r *playlistRepo) ListGroups(ctx context.Context, tag string) ([]model.PlaylistGroup, error) {
	q := `
        SELECT ` + playlistGroupColumns + `
        FROM playlist_groups
        ORDER BY created_at DESC
    `
	args := []interface{}{}
	if tag != "" {
		q = `
        SELECT ` + playlistGroupColumns + `
        FROM playlist_groups
        WHERE $1 = ANY(tags)
        ORDER BY created_at DESC
    `
		args = append(args, tag)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list playlist groups: %w", err)
	}
	defer rows.Close()

	var groups []model.PlaylistGroup
	for rows.Next() {
		g, err := scanPlaylistGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *playlistRepo) GetGroupByID(ctx context.Context, id string) (*model.PlaylistGroup, error) {
	q := `
        SELECT ` + playlistGroupColumns + `
        FROM playlist_groups
        WHERE id = $1
    `
	g, err := scanPlaylistGroup(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch playlist group %s: %w", id, err)
	}
	return g, nil
}

func (r *playlistRepo) CreateGroup(ctx context.Context, g *model.PlaylistGroup) error {
	rawPlaylists, err := json.Marshal(g.Playlists)
	if err != nil {
		return fmt.Errorf("marshal playlists: %w", err)
	}
	const q = `
        INSERT INTO playlist_groups (id, creator, description, tags, thumbnail_url, access, playlists, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q, g.ID, g.Creator, g.Description, g.Tags, g.ThumbnailURL, g.Access, rawPlaylists).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create playlist group: %w", err)
	}
	return nil
}

func (r *playlistRepo) UpdateGroup(ctx context.Context, g *model.PlaylistGroup) error {
	rawPlaylists, err := json.Marshal(g.Playlists)
	if err != nil {
		return fmt.Errorf("marshal playlists: %w", err)
	}
	const q = `
        UPDATE playlist_groups
        SET creator = $2,
            description = $3,
            tags = $4,
            thumbnail_url = $5,
            access = $6,
            playlists = $7,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err = r.pool.QueryRow(ctx, q, g.ID, g.Creator, g.Description, g.Tags, g.ThumbnailURL, g.Access, rawPlaylists).
		Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("playlist group %s not found", g.ID)
		}
		return fmt.Errorf("update playlist group %s: %w", g.ID, err)
	}
	return nil
}

func (r *playlistRepo) DeleteGroup(ctx context.Context, id string) error {
	const q = `DELETE FROM playlist_groups WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete playlist group %s: %w", id, err)
	}
	return nil
}
