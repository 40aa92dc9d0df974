package realtime

import (
	"encoding/json"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Server-to-client domain events.
const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskMoved      = "task_moved"
	EventTaskDeleted    = "task_deleted"
	EventNoteCreated    = "note_created"
	EventNoteUpdated    = "note_updated"
	EventNoteDeleted    = "note_deleted"
	EventMemberAdded    = "member_added"
	EventMemberRemoved  = "member_removed"
	EventRoleChanged    = "role_changed"
	EventProjectUpdated = "project_updated"
	EventProjectDeleted = "project_deleted"
	EventUserTyping     = "user_typing"
	EventJoinedProject  = "joined_project"
	EventError          = "error"
)

// Client-to-server control messages.
const (
	MsgJoinProject  = "join_project"
	MsgLeaveProject = "leave_project"
	MsgTypingStart  = "typing_start"
	MsgTypingStop   = "typing_stop"
)

// mirrored are client-originated copies of domain mutations, relayed to the
// rest of the project room for immediate echo ahead of the server broadcast.
var mirrored = map[string]bool{
	EventTaskCreated: true,
	EventTaskUpdated: true,
	EventTaskMoved:   true,
	EventTaskDeleted: true,
	EventNoteCreated: true,
	EventNoteUpdated: true,
}

// Envelope is the wire form of every server-to-client message.
type Envelope struct {
	Event     string              `json:"event"`
	ProjectID *primitive.ObjectID `json:"project_id,omitempty"`
	Actor     *models.PublicUser  `json:"actor,omitempty"`
	Mirrored  bool                `json:"mirrored,omitempty"`
	Data      any                 `json:"data,omitempty"`
}

// inbound is the wire form of client-to-server messages.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// projectRef is the payload shape shared by join/leave/typing/mirrored messages.
type projectRef struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id,omitempty"`
}
