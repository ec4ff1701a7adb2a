package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FilterRepository defines methods for accessing browse filters.
type FilterRepository interface {
	ListFilters(ctx context.Context) ([]model.Filter, error)
	CreateFilter(ctx context.Context, f *model.Filter) error
	DeleteFilter(ctx context.Context, id string) error
	// ReplaceFilters deletes all filters and inserts the given set atomically.
	ReplaceFilters(ctx context.Context, filters []model.Filter) error
}

type filterRepo struct {
	pool *pgxpool.Pool
}

// NewFilterRepo creates a new FilterRepository.
func NewFilterRepo(pool *pgxpool.Pool) FilterRepository {
	return &filterRepo{pool: pool}
}

func (r *filterRepo) ListFilters(ctx context.Context) ([]model.Filter, error) {
	const q = `
        SELECT id, category, tag
        FROM filters
        ORDER BY category ASC, tag ASC
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var filters []model.Filter
	for rows.Next() {
		var f model.Filter
		if err := rows.Scan(&f.ID, &f.Category, &f.Tag); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

func (r *filterRepo) CreateFilter(ctx context.Context, f *model.Filter) error {
	const q = `INSERT INTO filters (id, category, tag) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, q, f.ID, f.Category, f.Tag); err != nil {
		return fmt.Errorf("create filter: %w", err)
	}
	return nil
}

func (r *filterRepo) DeleteFilter(ctx context.Context, id string) error {
	const q = `DELETE FROM filters WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete filter %s: %w", id, err)
	}
	return nil
}

func (r *filterRepo) ReplaceFilters(ctx context.Context, filters []model.Filter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin filter replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM filters`); err != nil {
		return fmt.Errorf("clear filters: %w", err)
	}
	for _, f := range filters {
		if _, err := tx.Exec(ctx, `INSERT INTO filters (id, category, tag) VALUES ($1, $2, $3)`, f.ID, f.Category, f.Tag); err != nil {
			return fmt.Errorf("insert filter %s/%s: %w", f.Category, f.Tag, err)
		}
	}
	return tx.Commit(ctx)
}
