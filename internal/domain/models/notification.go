// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationRetention is how long a notification is kept before it becomes
// eligible for deletion.
const NotificationRetention = 7 * 24 * time.Hour

// Notification types.
const (
	NotifyProjectInvitation = "project_invitation"
	NotifyMemberJoined      = "member_joined"
	NotifyTaskAssigned      = "task_assigned"
	NotifyRoleChanged       = "role_changed"
	NotifyMemberRemoved     = "member_removed"
	NotifyTaskComment       = "task_comment"
)

// Notification is a durable record shown to a single user.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Data      map[string]any     `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
