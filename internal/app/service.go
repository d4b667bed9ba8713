/**
 * @description
 * This file contains the core business logic for the subscription-service.
 * The Service layer maps provider webhook events onto user subscription
 * flags and announces applied mutations on the event bus.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loopmind/subscription-service/internal/domain"
	"github.com/loopmind/subscription-service/internal/store"
	"github.com/loopmind/subscription-service/pkg/rabbitmq"
)

// Service provides the business logic for webhook processing and
// subscription reads.
type Service struct {
	repo      store.Repository
	publisher rabbitmq.Publisher
	logger    *slog.Logger
}

// NewService creates a new subscription service.
func NewService(repo store.Repository, publisher rabbitmq.Publisher, logger *slog.Logger) Service {
	return Service{repo: repo, publisher: publisher, logger: logger}
}

// ProcessEvent applies a provider webhook event to the referenced user.
//
// The event type dispatches as follows:
//   - INITIAL_PURCHASE: clear has_trial, set is_subscribed
//   - RENEWAL:          set is_subscribed
//   - EXPIRATION:       clear is_subscribed
//   - CANCELLATION:     no state change (access persists until expiration)
//   - anything else:    logged no-op
//
// Every arm verifies the user exists; store.ErrUserNotFound is returned
// when the app user ID resolves to no local user.
func (s Service) ProcessEvent(ctx context.Context, payload domain.WebhookPayload) (*domain.UserSubscription, error) {
	userID, err := domain.ExtractLocalUserID(payload.AppUserID)
	if err != nil {
		s.logger.Warn("app user id carries no local identifier", "app_user_id", payload.AppUserID)
		return nil, store.ErrUserNotFound
	}

	eventType := domain.ParseEventType(payload.Event)

	var (
		user       *domain.UserSubscription
		routingKey string
	)

	switch eventType {
	case domain.EventInitialPurchase:
		user, err = s.repo.ActivateSubscription(ctx, userID)
		routingKey = "subscription.activated"
	case domain.EventRenewal:
		user, err = s.repo.MarkSubscribed(ctx, userID)
		routingKey = "subscription.renewed"
	case domain.EventExpiration:
		user, err = s.repo.MarkUnsubscribed(ctx, userID)
		routingKey = "subscription.expired"
	case domain.EventCancellation:
		// Cancellation is a documentation-only signal; the user keeps access
		// until the provider delivers EXPIRATION. Lookup only, no write.
		user, err = s.repo.FindUserByID(ctx, userID)
	default:
		s.logger.Info("ignoring unhandled webhook event type", "event", payload.Event, "user_id", userID)
		user, err = s.repo.FindUserByID(ctx, userID)
	}

	if err != nil {
		return nil, err
	}

	if routingKey != "" {
		s.publishEvent(ctx, routingKey, string(eventType), user)
	}

	return user, nil
}

// CheckSubscription returns the current subscription flags for a user.
func (s Service) CheckSubscription(ctx context.Context, userID int64) (*domain.SubscriptionStatus, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.SubscriptionStatus{
		UserID:       user.ID,
		HasTrial:     user.HasTrial,
		IsSubscribed: user.IsSubscribed,
	}, nil
}

// publishEvent announces an applied mutation on the subscription_events
// exchange. The database write is the source of truth; a publish failure
// is logged and does not fail the webhook.
func (s Service) publishEvent(ctx context.Context, routingKey, eventType string, user *domain.UserSubscription) {
	event := domain.SubscriptionEvent{
		DeliveryID:   uuid.New(),
		UserID:       user.ID,
		EventType:    eventType,
		HasTrial:     user.HasTrial,
		IsSubscribed: user.IsSubscribed,
		Timestamp:    time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, rabbitmq.SubscriptionEventsExchange, routingKey, event); err != nil {
		s.logger.Warn("failed to publish subscription event",
			"routing_key", routingKey, "user_id", user.ID, "error", err)
		return
	}

	s.logger.Info("published subscription event", "routing_key", routingKey, "user_id", user.ID)
}
