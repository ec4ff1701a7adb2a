package model

import "time"

// User represents a user in the system. SubscriptionStatus and PlanType are
// denormalized mirrors of the subscription record, kept in sync by the
// subscription lifecycle handlers only.
type User struct {
	UserID             string    `db:"user_id" json:"user_id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	StripeCustomerID   *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string    `db:"subscription_status" json:"subscription_status"`
	PlanType           string    `db:"plan_type" json:"plan_type"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
