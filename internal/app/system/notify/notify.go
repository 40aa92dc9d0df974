// Package notify is the durable notification side-channel. Records are
// written independently of whether the recipient is connected and mirrored
// to the recipient's live room when possible.
package notify

import (
	"context"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventReceived is the live event pushed after a record is written.
const EventReceived = "notification_received"

// Store is the notification persistence the side-channel needs.
type Store interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int64) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteOlderThanForUser(ctx context.Context, userID primitive.ObjectID, cutoff time.Time) (int64, error)
}

// Pusher delivers a live event to one user's personal room.
type Pusher interface {
	NotifyUser(ctx context.Context, userID primitive.ObjectID, event string, payload any)
}

// Service implements Record and the ownership-scoped reader operations.
type Service struct {
	store     Store
	push      Pusher
	log       *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// New builds a Service. push may be nil (no live mirroring); retention <= 0
// means models.NotificationRetention.
func New(store Store, push Pusher, log *zap.Logger, retention time.Duration) *Service {
	if retention <= 0 {
		retention = models.NotificationRetention
	}
	return &Service{store: store, push: push, log: log, retention: retention, now: time.Now}
}

// Record writes a notification for userID and pushes it live. Failures are
// logged and never returned.
func (s *Service) Record(ctx context.Context, userID primitive.ObjectID, typ, title, message string, data map[string]any) {
	n, err := s.store.Create(ctx, models.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: s.now().UTC(),
	})
	if !BestEffort(s.log, "notification.record", err,
		zap.String("user_id", userID.Hex()), zap.String("type", typ)) {
		return
	}
	metrics.NotificationsRecorded.WithLabelValues(typ).Inc()
	if s.push != nil {
		s.push.NotifyUser(ctx, userID, EventReceived, n)
	}
}

// RecordMany records the same notification for each user except skip.
func (s *Service) RecordMany(ctx context.Context, userIDs []primitive.ObjectID, skip primitive.ObjectID, typ, title, message string, data map[string]any) {
	for _, uid := range userIDs {
		if uid == skip {
			continue
		}
		s.Record(ctx, uid, typ, title, message, data)
	}
}

// List returns the user's notifications inside the retention window. Stale
// records for this user are purged first; a failed purge does not fail the list.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	_, err := s.store.DeleteOlderThanForUser(ctx, userID, cutoff)
	BestEffort(s.log, "notification.lazy_purge", err, zap.String("user_id", userID.Hex()))

	out, err := s.store.ListForUser(ctx, userID, cutoff, limit)
	if err != nil {
		return nil, apperr.Internal("list notifications", err)
	}
	return out, nil
}

// UnreadCount counts the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("count unread notifications", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, id)
}

// MarkAllRead marks every notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ClearAll removes every notification of the user.
func (s *Service) ClearAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.DeleteAllForUser(ctx, userID)
}

func (s *Service) owned(ctx context.Context, userID, id primitive.ObjectID) error {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.NotOwner("you can only change your own notifications")
	}
	return nil
}
