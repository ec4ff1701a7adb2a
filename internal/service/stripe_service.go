package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/plan"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidRequest means a checkout request was missing required fields.
	ErrInvalidRequest = errors.New("missing required fields")
	// ErrUnknownPlan means the requested plan id is not in the plan registry.
	ErrUnknownPlan = errors.New("invalid plan type")
	// ErrProcessorUnavailable wraps network, timeout, and API failures from
	// the billing processor.
	ErrProcessorUnavailable = errors.New("billing processor unavailable")
	// ErrIdentityResolution means a webhook event could not be tied back to an
	// internal user. The data may not be consistent yet, so the event is
	// failed and the processor retries it.
	ErrIdentityResolution = errors.New("cannot resolve user from processor data")

	// errBadPayload marks events that are structurally unusable (missing
	// metadata the factory always sets). Retrying cannot fix these.
	errBadPayload = errors.New("malformed event payload")
)

// StripeService manages Stripe integration: customer resolution, checkout
// session creation, and webhook-driven subscription lifecycle sync.
type StripeService struct {
	cfg       *config.Config
	client    ProcessorClient
	userRepo  repository.UserRepository
	eventRepo repository.EventRepository
	subSvc    SubscriptionService
	logger    zerolog.Logger
}

// NewStripeService returns the service with a scoped logger.
func NewStripeService(cfg *config.Config, client ProcessorClient, userRepo repository.UserRepository, eventRepo repository.EventRepository, subSvc SubscriptionService, logger zerolog.Logger) *StripeService {
	return &StripeService{
		cfg:       cfg,
		client:    client,
		userRepo:  userRepo,
		eventRepo: eventRepo,
		subSvc:    subSvc,
		logger:    logger.With().Str("service", "StripeService").Logger(),
	}
}

// ResolveCustomer finds the Stripe customer for an email, creating one tagged
// with the internal user id on a lookup miss. Creation carries an idempotency
// key derived from the user id, so concurrent resolutions that both miss the
// lookup collapse into a single customer on the processor side.
func (s *StripeService) ResolveCustomer(ctx context.Context, email, userID string) (string, error) {
	if email == "" || userID == "" {
		return "", ErrInvalidRequest
	}

	existing, err := s.client.FindCustomerByEmail(email)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to look up Stripe customer by email")
		return "", fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	if existing != nil {
		s.rememberCustomerID(ctx, userID, existing.ID)
		return existing.ID, nil
	}

	params := &stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{"userId": userID},
	}
	params.SetIdempotencyKey("customer-create-" + userID)
	cust, err := s.client.CreateCustomer(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	s.rememberCustomerID(ctx, userID, cust.ID)
	return cust.ID, nil
}

// rememberCustomerID stores the processor customer id on the local user
// record. Best effort: the authoritative link lives in the customer metadata.
func (s *StripeService) rememberCustomerID(ctx context.Context, userID, customerID string) {
	if err := s.userRepo.UpdateStripeCustomerID(ctx, userID, customerID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to store stripe customer id on user record")
	}
}

// CreateCheckoutSession builds a subscription-mode hosted checkout session
// for the given plan and returns its opaque session id. Nothing is persisted
// locally; the outcome arrives later as a webhook event.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, planType, userID, email string) (string, error) {
	if planType == "" || userID == "" || email == "" {
		return "", ErrInvalidRequest
	}
	p, ok := plan.Get(planType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlan, planType)
	}

	customerID, err := s.ResolveCustomer(ctx, email, userID)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(p.Name),
					Description: stripe.String(strings.Join(p.Features, ", ")),
				},
				UnitAmount: stripe.Int64(p.Price),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(p.Interval),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		// The processor substitutes the session id into the placeholder.
		SuccessURL: stripe.String(s.cfg.AppBaseURL + "/subscription-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.AppBaseURL + "/subscription"),
		Metadata:   map[string]string{"userId": userID, "planType": planType},
	}
	sess, err := s.client.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_type", planType).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	return sess.ID, nil
}

// resolveUserID ties a webhook event back to an internal user. Events other
// than checkout completion carry the processor customer id rather than our
// user id, so the customer's metadata is the authoritative link; the local
// user record is the fallback.
func (s *StripeService) resolveUserID(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID, ok := metadata["userId"]; ok && userID != "" {
		return userID, nil
	}
	if customerID == "" {
		return "", fmt.Errorf("%w: no metadata and no customer id", ErrIdentityResolution)
	}
	cust, err := s.client.GetCustomer(customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("stripe_customer_id", customerID).Msg("Failed to retrieve Stripe customer for identity resolution")
		return "", fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	if userID, ok := cust.Metadata["userId"]; ok && userID != "" {
		return userID, nil
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Customer metadata missing userId; falling back to local lookup")
	u, err := s.userRepo.GetUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("lookup user by stripe customer id: %w", err)
	}
	if u == nil {
		return "", fmt.Errorf("%w: no user for customer %s", ErrIdentityResolution, customerID)
	}
	return u.UserID, nil
}

// HandleWebhook processes Stripe webhook events. It must receive the raw,
// unmodified request body: signature verification runs over the exact bytes
// Stripe signed. Fails closed on verification, returns 5xx on handler
// failure so the processor redelivers.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	ctx := r.Context()
	processed, err := s.eventRepo.WasProcessed(ctx, event.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to check event marker")
		http.Error(w, "failed to check event", http.StatusInternalServerError)
		return
	}
	if processed {
		s.logger.Info().Str("event_id", event.ID).Msg("Duplicate delivery, already processed")
		s.acknowledge(w)
		return
	}

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		handleErr = s.handleCheckoutCompleted(ctx, &cs)
	case "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.updated payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		handleErr = s.handleSubscriptionUpdated(ctx, &ss)
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		handleErr = s.handleSubscriptionDeleted(ctx, &ss)
	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.logger.Error().Err(err).Msg("Invalid invoice.payment_failed payload")
			http.Error(w, "invalid invoice data", http.StatusBadRequest)
			return
		}
		handleErr = s.handlePaymentFailed(ctx, &invoice)
	case "invoice.payment_succeeded":
		s.logger.Info().Str("event_id", event.ID).Msg("Payment succeeded; renewal state arrives via customer.subscription.updated")
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}

	if handleErr != nil {
		if errors.Is(handleErr, errBadPayload) {
			s.logger.Error().Err(handleErr).Str("event_id", event.ID).Msg("Discarding malformed event")
			http.Error(w, "malformed event payload", http.StatusBadRequest)
			return
		}
		s.logger.Error().Err(handleErr).Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Webhook handler failed; processor will retry")
		http.Error(w, "webhook handler failed", http.StatusInternalServerError)
		return
	}

	// The marker is written only after the handler committed, so a failed
	// delivery is retried rather than suppressed.
	if err := s.eventRepo.MarkProcessed(ctx, event.ID, string(event.Type)); err != nil {
		s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to record event marker; handlers are idempotent on replay")
	}
	s.pruneEventMarkers(ctx)
	s.acknowledge(w)
}

func (s *StripeService) acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func (s *StripeService) pruneEventMarkers(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.EventRetentionDays)
	if _, err := s.eventRepo.PruneOlderThan(ctx, cutoff); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to prune processed event markers")
	}
}

// handleCheckoutCompleted upserts the subscription record for the user named
// in the session metadata. The completion event alone does not carry period
// boundaries, so the full subscription is fetched from the processor first.
func (s *StripeService) handleCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) error {
	userID := cs.Metadata["userId"]
	planType := cs.Metadata["planType"]
	if userID == "" || planType == "" {
		return fmt.Errorf("%w: checkout session missing userId/planType metadata", errBadPayload)
	}
	if cs.Subscription == nil || cs.Customer == nil {
		return fmt.Errorf("%w: checkout session missing subscription or customer", errBadPayload)
	}

	subObj, err := s.client.GetSubscription(cs.Subscription.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", cs.Subscription.ID).Msg("Failed to fetch subscription details")
		return fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	if len(subObj.Items.Data) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", errBadPayload, subObj.ID)
	}
	item := subObj.Items.Data[0]

	return s.subSvc.ApplyCheckoutCompleted(ctx, &model.Subscription{
		UserID:               userID,
		StripeCustomerID:     cs.Customer.ID,
		StripeSubscriptionID: cs.Subscription.ID,
		PlanType:             planType,
		Status:               string(subObj.Status),
		CancelAtPeriodEnd:    subObj.CancelAtPeriodEnd,
		CurrentPeriodStart:   time.Unix(item.CurrentPeriodStart, 0),
		CurrentPeriodEnd:     time.Unix(item.CurrentPeriodEnd, 0),
	})
}

// handleSubscriptionUpdated follows a processor-side status change. The event
// carries the customer id, not the internal user id, so the customer metadata
// indirection in resolveUserID is load-bearing. If the update arrives before
// the checkout-completed handler finished, the record is created from the
// available fields instead of failing.
func (s *StripeService) handleSubscriptionUpdated(ctx context.Context, ss *stripe.Subscription) error {
	if ss.Customer == nil {
		return fmt.Errorf("%w: subscription event missing customer", errBadPayload)
	}
	if len(ss.Items.Data) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", errBadPayload, ss.ID)
	}
	userID, err := s.resolveUserID(ctx, ss.Metadata, ss.Customer.ID)
	if err != nil {
		return err
	}
	item := ss.Items.Data[0]

	return s.subSvc.ApplyStatusUpdate(ctx, userID, model.SubscriptionStatusUpdate{
		StripeCustomerID:     ss.Customer.ID,
		StripeSubscriptionID: ss.ID,
		Status:               string(ss.Status),
		CancelAtPeriodEnd:    ss.CancelAtPeriodEnd,
		CurrentPeriodStart:   time.Unix(item.CurrentPeriodStart, 0),
		CurrentPeriodEnd:     time.Unix(item.CurrentPeriodEnd, 0),
	})
}

// handleSubscriptionDeleted marks the record canceled and mirrors the status
// onto the user. The record is kept for history.
func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, ss *stripe.Subscription) error {
	if ss.Customer == nil {
		return fmt.Errorf("%w: subscription event missing customer", errBadPayload)
	}
	userID, err := s.resolveUserID(ctx, ss.Metadata, ss.Customer.ID)
	if err != nil {
		return err
	}
	return s.subSvc.ApplyCanceled(ctx, userID)
}

// handlePaymentFailed moves the subscription toward past_due. The invoice
// names the subscription; its current state is fetched from the processor so
// the stored status stays a verbatim copy. Terminal cancellation after the
// processor's retry schedule arrives as customer.subscription.deleted.
func (s *StripeService) handlePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	var customerID string
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	userID, err := s.resolveUserID(ctx, invoice.Metadata, customerID)
	if err != nil {
		return err
	}

	var subID string
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Subscription != nil && line.Subscription.ID != "" {
				subID = line.Subscription.ID
				break
			}
		}
	}
	if subID == "" {
		// One-time invoice; nothing to sync.
		s.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice has no subscription, skipping")
		return nil
	}

	subObj, err := s.client.GetSubscription(subID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", subID).Msg("Failed to fetch subscription after failed payment")
		return fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	if len(subObj.Items.Data) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", errBadPayload, subID)
	}
	item := subObj.Items.Data[0]

	return s.subSvc.ApplyStatusUpdate(ctx, userID, model.SubscriptionStatusUpdate{
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subID,
		Status:               string(subObj.Status),
		CancelAtPeriodEnd:    subObj.CancelAtPeriodEnd,
		CurrentPeriodStart:   time.Unix(item.CurrentPeriodStart, 0),
		CurrentPeriodEnd:     time.Unix(item.CurrentPeriodEnd, 0),
	})
}
