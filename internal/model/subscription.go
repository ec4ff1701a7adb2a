package model

import "time"

// Subscription statuses, passed through verbatim from the billing processor.
const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
)

// Subscription is the persisted record of a user's subscription, keyed by the
// internal user id. One record per user; cancellation keeps the record.
type Subscription struct {
	UserID               string    `db:"user_id" json:"user_id"`
	StripeCustomerID     string    `db:"stripe_customer_id" json:"stripe_customer_id"`
	StripeSubscriptionID string    `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	PlanType             string    `db:"plan_type" json:"plan_type"`
	Status               string    `db:"status" json:"status"`
	CancelAtPeriodEnd    bool      `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CurrentPeriodStart   time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time `db:"current_period_end" json:"current_period_end"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionStatusUpdate carries the fields a processor-side status change
// event can update. PlanType is intentionally absent: update events carry
// processor price ids, not registry plan ids, so the plan set at checkout is
// kept as-is.
type SubscriptionStatusUpdate struct {
	StripeCustomerID     string
	StripeSubscriptionID string
	Status               string
	CancelAtPeriodEnd    bool
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time
}
