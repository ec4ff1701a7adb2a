package service

import (
	"net/http"
	"time"

	"app/internal/config"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
)

// ProcessorClient is the narrow surface of the billing processor API that
// this service uses. Kept small so tests can substitute a fake.
type ProcessorClient interface {
	// FindCustomerByEmail returns the first customer with an exact email
	// match, or nil when none exists.
	FindCustomerByEmail(email string) (*stripe.Customer, error)
	CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	GetCustomer(id string) (*stripe.Customer, error)
}

type stripeClient struct{}

// NewStripeClient configures the global Stripe client with the secret key and
// a bounded-timeout HTTP client, so a hung processor call cannot pin a
// webhook request indefinitely.
func NewStripeClient(cfg *config.Config) ProcessorClient {
	stripe.Key = cfg.StripeSecretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.StripeTimeoutSec) * time.Second},
	}))
	return &stripeClient{}
}

func (c *stripeClient) FindCustomerByEmail(email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	iter := customerpkg.List(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *stripeClient) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return customerpkg.New(params)
}

func (c *stripeClient) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return checkoutsession.New(params)
}

func (c *stripeClient) GetSubscription(id string) (*stripe.Subscription, error) {
	return subscriptionpkg.Get(id, nil)
}

func (c *stripeClient) GetCustomer(id string) (*stripe.Customer, error) {
	return customerpkg.Get(id, nil)
}
