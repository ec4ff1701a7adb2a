package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription records.
// The subscription lifecycle handlers are the only writers.
type SubscriptionRepository interface {
	// GetSubscription returns the user's subscription record, or nil if none exists.
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// UpsertSubscription writes the full record after a completed checkout.
	// Re-running with identical inputs only advances updated_at.
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	// UpsertStatus applies a processor-side status change. Creates the record
	// when the update event arrives before the checkout-completed handler has
	// run; never touches plan_type on an existing record.
	UpsertStatus(ctx context.Context, userID string, upd model.SubscriptionStatusUpdate) error
	// MarkCanceled sets the record's status to canceled. The record is
	// retained for history.
	MarkCanceled(ctx context.Context, userID string) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
        SELECT user_id, stripe_customer_id, stripe_subscription_id, plan_type, status,
               cancel_at_period_end, current_period_start, current_period_end, created_at, updated_at
        FROM subscriptions
        WHERE user_id = $1
    `
	var s model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&s.UserID,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.PlanType,
		&s.Status,
		&s.CancelAtPeriodEnd,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	const q = `
        INSERT INTO subscriptions (user_id, stripe_customer_id, stripe_subscription_id, plan_type, status,
                                   cancel_at_period_end, current_period_start, current_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET stripe_customer_id = EXCLUDED.stripe_customer_id,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            plan_type = EXCLUDED.plan_type,
            status = EXCLUDED.status,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q,
		sub.UserID,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.PlanType,
		sub.Status,
		sub.CancelAtPeriodEnd,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpsertStatus(ctx context.Context, userID string, upd model.SubscriptionStatusUpdate) error {
	const q = `
        INSERT INTO subscriptions (user_id, stripe_customer_id, stripe_subscription_id, plan_type, status,
                                   cancel_at_period_end, current_period_start, current_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, '', $4, $5, $6, $7, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET stripe_customer_id = EXCLUDED.stripe_customer_id,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            status = EXCLUDED.status,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q,
		userID,
		upd.StripeCustomerID,
		upd.StripeSubscriptionID,
		upd.Status,
		upd.CancelAtPeriodEnd,
		upd.CurrentPeriodStart,
		upd.CurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription status for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) MarkCanceled(ctx context.Context, userID string) error {
	const q = `
        UPDATE subscriptions
        SET status = 'canceled',
            updated_at = NOW()
        WHERE user_id = $1;
    `
	_, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("mark subscription canceled for user %s: %w", userID, err)
	}
	return nil
}
