package dto

import "time"

// SubscriptionResponseDTO is the caller's view of their subscription record
// plus the derived entitlement.
type SubscriptionResponseDTO struct {
	PlanType           string     `json:"plan_type,omitempty"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	Entitled           bool       `json:"entitled"`
}
