/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the subscription-service. By
 * defining an interface, we decouple the application's business logic from
 * the PostgreSQL implementation, making the code easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */
package store

import (
	"context"
	"errors"

	"github.com/loopmind/subscription-service/internal/domain"
)

// ErrUserNotFound is returned when no user row matches the requested ID.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// FindUserByID returns the subscription flags for a user,
	// or ErrUserNotFound when no row matches.
	FindUserByID(ctx context.Context, userID int64) (*domain.UserSubscription, error)

	// ActivateSubscription clears the trial flag and marks the user as
	// subscribed. Applied on INITIAL_PURCHASE.
	ActivateSubscription(ctx context.Context, userID int64) (*domain.UserSubscription, error)

	// MarkSubscribed sets is_subscribed without touching the trial flag.
	// Applied on RENEWAL.
	MarkSubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error)

	// MarkUnsubscribed clears is_subscribed without touching the trial flag.
	// Applied on EXPIRATION.
	MarkUnsubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error)

	// CountSubscriptionTotals aggregates current flag counts across all users.
	CountSubscriptionTotals(ctx context.Context) (*domain.SubscriptionTotals, error)
}
