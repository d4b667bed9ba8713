/**
 * @description
 * This file implements the data access layer for the subscription-service.
 * It contains all the SQL queries and logic for interacting with the
 * users table via a pgx connection pool.
 *
 * All webhook-driven mutations are single-row idempotent sets: replaying
 * the same provider event reapplies the same values.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopmind/subscription-service/internal/domain"
)

// PostgresRepository handles database operations for subscription state.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindUserByID retrieves the subscription flags for a user.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	var user domain.UserSubscription
	query := `
        SELECT id, has_trial, is_subscribed
        FROM users
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.HasTrial,
		&user.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ActivateSubscription clears the trial flag and marks the user subscribed.
func (r *PostgresRepository) ActivateSubscription(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	query := `
        UPDATE users
        SET has_trial = FALSE,
            is_subscribed = TRUE,
            updated_at = NOW()
        WHERE id = $1
        RETURNING id, has_trial, is_subscribed
    `
	return r.updateFlags(ctx, query, userID)
}

// MarkSubscribed sets is_subscribed, leaving the trial flag unchanged.
func (r *PostgresRepository) MarkSubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	query := `
        UPDATE users
        SET is_subscribed = TRUE,
            updated_at = NOW()
        WHERE id = $1
        RETURNING id, has_trial, is_subscribed
    `
	return r.updateFlags(ctx, query, userID)
}

// MarkUnsubscribed clears is_subscribed, leaving the trial flag unchanged.
func (r *PostgresRepository) MarkUnsubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	query := `
        UPDATE users
        SET is_subscribed = FALSE,
            updated_at = NOW()
        WHERE id = $1
        RETURNING id, has_trial, is_subscribed
    `
	return r.updateFlags(ctx, query, userID)
}

// updateFlags runs a single-row flag update and maps a missing row to
// ErrUserNotFound.
func (r *PostgresRepository) updateFlags(ctx context.Context, query string, userID int64) (*domain.UserSubscription, error) {
	var user domain.UserSubscription
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.HasTrial,
		&user.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CountSubscriptionTotals aggregates the current flag distribution.
func (r *PostgresRepository) CountSubscriptionTotals(ctx context.Context) (*domain.SubscriptionTotals, error) {
	totals := domain.SubscriptionTotals{GeneratedAt: time.Now().UTC()}
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE has_trial),
               COUNT(*) FILTER (WHERE is_subscribed)
        FROM users
    `
	err := r.db.QueryRow(ctx, query).Scan(
		&totals.TotalUsers,
		&totals.OnTrial,
		&totals.Subscribed,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
