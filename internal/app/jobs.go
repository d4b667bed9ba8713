/**
 * @description
 * Scheduled job implementations for the subscription-service.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/loopmind/subscription-service/internal/store"
	"github.com/loopmind/subscription-service/pkg/rabbitmq"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo      store.Repository
	publisher rabbitmq.Publisher
	logger    *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo store.Repository, publisher rabbitmq.Publisher, logger *slog.Logger) *Jobs {
	return &Jobs{repo: repo, publisher: publisher, logger: logger}
}

// PublishSubscriptionSnapshot counts the current flag distribution across
// all users and publishes it for downstream analytics. Read-only.
func (j *Jobs) PublishSubscriptionSnapshot() {
	j.logger.Info("starting subscription snapshot job")
	ctx := context.Background()

	totals, err := j.repo.CountSubscriptionTotals(ctx)
	if err != nil {
		j.logger.Error("failed to count subscription totals", "error", err)
		return
	}

	if err := j.publisher.Publish(ctx, rabbitmq.SubscriptionEventsExchange, "subscription.snapshot", totals); err != nil {
		j.logger.Error("failed to publish subscription snapshot", "error", err)
		return
	}

	j.logger.Info("subscription snapshot job finished",
		"total_users", totals.TotalUsers,
		"on_trial", totals.OnTrial,
		"subscribed", totals.Subscribed)
}
