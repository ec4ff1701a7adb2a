package dto

// CheckoutSessionCreateDTO is the incoming checkout request. Field names
// match what the frontend sends.
type CheckoutSessionCreateDTO struct {
	PlanType  string `json:"planType" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	UserEmail string `json:"userEmail" validate:"required,email"`
}

// CheckoutSessionResponseDTO carries the opaque hosted-checkout session id.
type CheckoutSessionResponseDTO struct {
	SessionID string `json:"sessionId"`
}
