package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
	// UpdateSubscriptionMirror writes the denormalized subscription fields on
	// the user record. Lifecycle handlers only.
	UpdateSubscriptionMirror(ctx context.Context, userID, status, planType string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
        SELECT user_id, name, email, stripe_customer_id, subscription_status, plan_type, created_at, updated_at
        FROM users
        WHERE user_id = $1
    `
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.UserID, &u.Name, &u.Email, &u.StripeCustomerID,
		&u.SubscriptionStatus, &u.PlanType, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	const q = `
        SELECT user_id, name, email, stripe_customer_id, subscription_status, plan_type, created_at, updated_at
        FROM users
        WHERE stripe_customer_id = $1
    `
	var u model.User
	err := r.pool.QueryRow(ctx, q, customerID).Scan(
		&u.UserID, &u.Name, &u.Email, &u.StripeCustomerID,
		&u.SubscriptionStatus, &u.PlanType, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user by stripe customer %s: %w", customerID, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `
        UPDATE users
        SET stripe_customer_id = $2,
            updated_at = NOW()
        WHERE user_id = $1;
    `
	_, err := r.pool.Exec(ctx, q, userID, customerID)
	if err != nil {
		return fmt.Errorf("store stripe customer id for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) UpdateSubscriptionMirror(ctx context.Context, userID, status, planType string) error {
	const q = `
        UPDATE users
        SET subscription_status = $2,
            plan_type = $3,
            updated_at = NOW()
        WHERE user_id = $1;
    `
	_, err := r.pool.Exec(ctx, q, userID, status, planType)
	if err != nil {
		return fmt.Errorf("update subscription mirror for user %s: %w", userID, err)
	}
	return nil
}
