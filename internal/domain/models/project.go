// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Doing-column limit bounds.
const (
	DefaultDoingColumnLimit = 5
	MinDoingColumnLimit     = 1
	MaxDoingColumnLimit     = 20
)

// Project is the root document for a team workspace. Members and
// invitations have no lifecycle outside the project that embeds them.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`
	Creator     primitive.ObjectID `bson:"creator" json:"creator"`

	Members     []Member        `bson:"members" json:"members"`
	Invitations []Invitation    `bson:"invitations" json:"invitations"`
	Settings    ProjectSettings `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProjectSettings holds admin-editable project configuration.
type ProjectSettings struct {
	DoingColumnLimit int `bson:"doing_column_limit" json:"doing_column_limit"`
}

// Member is a (user, role, joinedAt) entry embedded in a project.
type Member struct {
	MemberID primitive.ObjectID `bson:"member_id" json:"member_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     Role               `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// InvitationStatus is the state of an invitation. Only pending transitions.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation is a pending or processed offer to join a project.
type Invitation struct {
	InvitationID primitive.ObjectID `bson:"invitation_id" json:"invitation_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	InvitedBy    primitive.ObjectID `bson:"invited_by" json:"invited_by"`
	Role         Role               `bson:"role" json:"role"`
	Status       InvitationStatus   `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	RespondedAt  *time.Time         `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// FindMember returns the member entry for userID, if any.
func (p *Project) FindMember(userID primitive.ObjectID) (Member, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// IsMember reports whether userID has a member entry.
func (p *Project) IsMember(userID primitive.ObjectID) bool {
	_, ok := p.FindMember(userID)
	return ok
}

// FindInvitation returns the invitation with the given id, if any.
func (p *Project) FindInvitation(id primitive.ObjectID) (Invitation, bool) {
	for _, inv := range p.Invitations {
		if inv.InvitationID == id {
			return inv, true
		}
	}
	return Invitation{}, false
}

// HasPendingInvitation reports whether userID already has a pending invitation.
func (p *Project) HasPendingInvitation(userID primitive.ObjectID) bool {
	for _, inv := range p.Invitations {
		if inv.UserID == userID && inv.Status == InvitationPending {
			return true
		}
	}
	return false
}

// MemberIDs returns the user ids of all members in order.
func (p *Project) MemberIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// DoingLimit returns the configured limit, falling back to the default for
// documents written before settings existed.
func (p *Project) DoingLimit() int {
	if p.Settings.DoingColumnLimit < MinDoingColumnLimit {
		return DefaultDoingColumnLimit
	}
	return p.Settings.DoingColumnLimit
}
