/**
 * @description
 * This file defines the core domain models for the subscription-service.
 * It includes the UserSubscription struct that maps to the users table
 * and the DTOs returned by the API and published to RabbitMQ.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserSubscription represents the subscription flags held on a user row.
// Both flags are independently settable; a user with neither flag set is
// in the expired-after-trial state.
type UserSubscription struct {
	ID           int64 `json:"user_id"`
	HasTrial     bool  `json:"has_trial"`
	IsSubscribed bool  `json:"is_subscribed"`
}

// SubscriptionStatus is the DTO returned by the check and status endpoints.
type SubscriptionStatus struct {
	UserID       int64 `json:"user_id"`
	HasTrial     bool  `json:"has_trial"`
	IsSubscribed bool  `json:"is_subscribed"`
}

// SubscriptionTotals aggregates the current flag distribution across all users.
// Produced by the snapshot job and published for downstream analytics.
type SubscriptionTotals struct {
	TotalUsers  int64     `json:"total_users"`
	OnTrial     int64     `json:"on_trial"`
	Subscribed  int64     `json:"subscribed"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SubscriptionEvent is the message published to the subscription_events
// exchange after a webhook mutation has been applied.
type SubscriptionEvent struct {
	DeliveryID   uuid.UUID `json:"delivery_id"`
	UserID       int64     `json:"user_id"`
	EventType    string    `json:"event_type"`
	HasTrial     bool      `json:"has_trial"`
	IsSubscribed bool      `json:"is_subscribed"`
	Timestamp    time.Time `json:"timestamp"`
}
