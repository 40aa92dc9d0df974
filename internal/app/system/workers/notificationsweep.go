// internal/app/system/workers/notificationsweep.go
package workers

import (
	"context"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// NotificationPurger deletes notifications created before cutoff.
type NotificationPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationSweepJob removes notifications past the retention window for
// every user. Readers also purge their own expired records lazily, so this
// only bounds storage for users who never read.
func NotificationSweepJob(store NotificationPurger, logger *zap.Logger, interval, retention time.Duration) Job {
	return Job{
		Name:     "notification-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := SweepNotifications(ctx, store, logger, retention, time.Now())
			return err
		},
	}
}

// SweepNotifications runs one sweep as of now and returns how many records
// it removed.
func SweepNotifications(ctx context.Context, store NotificationPurger, logger *zap.Logger, retention time.Duration, now time.Time) (int64, error) {
	count, err := store.DeleteOlderThan(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.NotificationsSwept.Add(float64(count))
		logger.Info("swept expired notifications",
			zap.Int64("count", count),
			zap.Duration("retention", retention))
	}
	return count, nil
}
