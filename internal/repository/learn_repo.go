package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LearnRepository defines methods for accessing learning videos.
type LearnRepository interface {
	ListVideos(ctx context.Context) ([]model.LearnVideo, error)
	CreateVideo(ctx context.Context, v *model.LearnVideo) error
	UpdateVideo(ctx context.Context, v *model.LearnVideo) error
	DeleteVideo(ctx context.Context, id string) error
}

type learnRepo struct {
	pool *pgxpool.Pool
}

// NewLearnRepo creates a new LearnRepository.
func NewLearnRepo(pool *pgxpool.Pool) LearnRepository {
	return &learnRepo{pool: pool}
}

func (r *learnRepo) ListVideos(ctx context.Context) ([]model.LearnVideo, error) {
	const q = `
        SELECT id, title, description, vimeo_url, position
        FROM learn_videos
        ORDER BY position ASC
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list learn videos: %w", err)
	}
	defer rows.Close()

	var videos []model.LearnVideo
	for rows.Next() {
		var v model.LearnVideo
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VimeoURL, &v.Position); err != nil {
			return nil, fmt.Errorf("scan learn video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *learnRepo) CreateVideo(ctx context.Context, v *model.LearnVideo) error {
	const q = `INSERT INTO learn_videos (id, title, description, vimeo_url, position) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, q, v.ID, v.Title, v.Description, v.VimeoURL, v.Position); err != nil {
		return fmt.Errorf("create learn video: %w", err)
	}
	return nil
}

func (r *learnRepo) UpdateVideo(ctx context.Context, v *model.LearnVideo) error {
	const q = `
        UPDATE learn_videos
        SET title = $2, description = $3, vimeo_url = $4, position = $5
        WHERE id = $1
        RETURNING id
    `
	var id string
	err := r.pool.QueryRow(ctx, q, v.ID, v.Title, v.Description, v.VimeoURL, v.Position).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("learn video %s not found", v.ID)
		}
		return fmt.Errorf("update learn video %s: %w", v.ID, err)
	}
	return nil
}

func (r *learnRepo) DeleteVideo(ctx context.Context, id string) error {
	const q = `DELETE FROM learn_videos WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete learn video %s: %w", id, err)
	}
	return nil
}
