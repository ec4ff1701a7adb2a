package service

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService owns all writes to subscription records and to the
// mirrored subscription fields on user records. No other component mutates
// subscription state.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// Entitlement returns the subscription record together with whether the
	// user currently has access to paid content.
	Entitlement(ctx context.Context, userID string) (*model.Subscription, bool, error)
	ApplyCheckoutCompleted(ctx context.Context, sub *model.Subscription) error
	ApplyStatusUpdate(ctx context.Context, userID string, upd model.SubscriptionStatusUpdate) error
	ApplyCanceled(ctx context.Context, userID string) error
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	userRepo repository.UserRepository
	grace    time.Duration
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
// grace is how long past_due subscriptions keep access beyond the paid period.
func NewSubscriptionService(repo repository.SubscriptionRepository, userRepo repository.UserRepository, grace time.Duration, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		userRepo: userRepo,
		grace:    grace,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

// EntitledAt reports whether a subscription grants access at the given time.
// Status alone is never sufficient: a stale "active" record stops granting
// access once its paid period lapses, and a subscription canceled at period
// end keeps access until the period it was paid through runs out.
func EntitledAt(sub *model.Subscription, now time.Time, grace time.Duration) bool {
	if sub == nil {
		return false
	}
	switch sub.Status {
	case model.SubscriptionStatusActive:
		return now.Before(sub.CurrentPeriodEnd)
	case model.SubscriptionStatusPastDue:
		// Grace window covers the gap while the processor retries payment.
		return now.Before(sub.CurrentPeriodEnd.Add(grace))
	case model.SubscriptionStatusCanceled:
		return sub.CancelAtPeriodEnd && now.Before(sub.CurrentPeriodEnd)
	default:
		return false
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Entitlement(ctx context.Context, userID string) (*model.Subscription, bool, error) {
	sub, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return sub, EntitledAt(sub, time.Now().UTC(), s.grace), nil
}

func (s *subscriptionService) ApplyCheckoutCompleted(ctx context.Context, sub *model.Subscription) error {
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("user_id", sub.UserID).Str("plan_type", sub.PlanType).Msg("Failed to upsert subscription")
		return err
	}
	if err := s.userRepo.UpdateSubscriptionMirror(ctx, sub.UserID, sub.Status, sub.PlanType); err != nil {
		s.logger.Error().Err(err).Str("user_id", sub.UserID).Msg("Failed to mirror subscription onto user")
		return err
	}
	return nil
}

func (s *subscriptionService) ApplyStatusUpdate(ctx context.Context, userID string, upd model.SubscriptionStatusUpdate) error {
	if err := s.repo.UpsertStatus(ctx, userID, upd); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("status", upd.Status).Msg("Failed to apply subscription status update")
		return err
	}
	return s.mirrorCurrent(ctx, userID)
}

func (s *subscriptionService) ApplyCanceled(ctx context.Context, userID string) error {
	if err := s.repo.MarkCanceled(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mark subscription canceled")
		return err
	}
	return s.mirrorCurrent(ctx, userID)
}

// mirrorCurrent re-reads the record and writes its status and plan onto the
// user record, so a retried handler reconciles a previously partial write.
func (s *subscriptionService) mirrorCurrent(ctx context.Context, userID string) error {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	if err := s.userRepo.UpdateSubscriptionMirror(ctx, userID, sub.Status, sub.PlanType); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mirror subscription onto user")
		return err
	}
	return nil
}
