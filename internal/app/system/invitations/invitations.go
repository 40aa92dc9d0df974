// Package invitations implements the project invitation state machine.
//
// An invitation starts pending and moves exactly once, to accepted or
// declined. The transition is a conditional update on the pending status, so
// a second response to the same invitation always sees a Conflict.
package invitations

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Actions accepted by Respond.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// Projects is the project persistence the state machine needs.
type Projects interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	AddInvitation(ctx context.Context, projectID primitive.ObjectID, inv models.Invitation) error
	TransitionInvitation(ctx context.Context, projectID, invitationID primitive.ObjectID, status models.InvitationStatus) (bool, error)
	AddMember(ctx context.Context, projectID primitive.ObjectID, m models.Member) error
}

// Users resolves invitees.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Recorder is the notification side-channel.
type Recorder interface {
	Record(ctx context.Context, userID primitive.ObjectID, typ, title, message string, data map[string]any)
	RecordMany(ctx context.Context, userIDs []primitive.ObjectID, skip primitive.ObjectID, typ, title, message string, data map[string]any)
}

// Broadcaster fans project events out to connected members.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any)
}

type Service struct {
	projects Projects
	users    Users
	notes    Recorder
	rt       Broadcaster
	log      *zap.Logger
	now      func() time.Time
}

func New(projects Projects, users Users, notes Recorder, rt Broadcaster, log *zap.Logger) *Service {
	return &Service{projects: projects, users: users, notes: notes, rt: rt, log: log, now: time.Now}
}

// Create appends a pending invitation for inviteeID to p. The caller has
// already been authorized as a project admin.
func (s *Service) Create(ctx context.Context, p *models.Project, inviter models.PublicUser, inviterID, inviteeID primitive.ObjectID, role models.Role) (models.Invitation, error) {
	if !role.Valid() {
		return models.Invitation{}, apperr.Validation(apperr.FieldError{Field: "role", Message: "must be viewer, editor, or admin"})
	}
	invitee, err := s.users.GetByID(ctx, inviteeID)
	if err != nil {
		return models.Invitation{}, err
	}
	if p.IsMember(inviteeID) {
		return models.Invitation{}, apperr.Conflict("user is already a member of this project")
	}
	if p.HasPendingInvitation(inviteeID) {
		return models.Invitation{}, apperr.Conflict("user already has a pending invitation to this project")
	}

	inv := models.Invitation{
		InvitationID: primitive.NewObjectID(),
		UserID:       inviteeID,
		InvitedBy:    inviterID,
		Role:         role,
		Status:       models.InvitationPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.projects.AddInvitation(ctx, p.ID, inv); err != nil {
		return models.Invitation{}, err
	}

	s.log.Info("invitation created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("invitee", invitee.Username),
		zap.String("role", role.String()))

	sctx, cancel := timeouts.Detached(ctx)
	defer cancel()

	s.notes.Record(sctx, inviteeID, models.NotifyProjectInvitation,
		"Project invitation",
		fmt.Sprintf("%s invited you to join %s as %s", inviter.Name, p.Name, role),
		map[string]any{
			"project_id":    p.ID.Hex(),
			"project_name":  p.Name,
			"invitation_id": inv.InvitationID.Hex(),
			"role":          role.String(),
			"invited_by":    inviter,
		})
	return inv, nil
}

// Result is the outcome of Respond.
type Result struct {
	Invitation models.Invitation `json:"invitation"`
	Member     *models.Member    `json:"member,omitempty"`
}

// Respond applies the invitee's accept or decline to a pending invitation.
// On accept the invitee joins with the invitation's role unchanged.
func (s *Service) Respond(ctx context.Context, projectID, invitationID primitive.ObjectID, caller models.PublicUser, callerID primitive.ObjectID, action string) (Result, error) {
	var status models.InvitationStatus
	switch action {
	case ActionAccept:
		status = models.InvitationAccepted
	case ActionDecline:
		status = models.InvitationDeclined
	default:
		return Result{}, apperr.Validation(apperr.FieldError{Field: "action", Message: "must be accept or decline"})
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return Result{}, err
	}
	inv, ok := p.FindInvitation(invitationID)
	if !ok {
		return Result{}, apperr.NotFound("invitation")
	}
	if inv.UserID != callerID {
		return Result{}, apperr.Forbidden("this invitation is addressed to another user")
	}
	if inv.Status != models.InvitationPending {
		return Result{}, apperr.Conflict("invitation already processed")
	}

	moved, err := s.projects.TransitionInvitation(ctx, projectID, invitationID, status)
	if err != nil {
		return Result{}, err
	}
	if !moved {
		return Result{}, apperr.Conflict("invitation already processed")
	}
	now := s.now().UTC()
	inv.Status = status
	inv.RespondedAt = &now
	res := Result{Invitation: inv}

	s.log.Info("invitation answered",
		zap.String("project_id", projectID.Hex()),
		zap.String("invitation_id", invitationID.Hex()),
		zap.String("status", string(status)))

	if status == models.InvitationDeclined {
		return res, nil
	}

	m := models.Member{
		MemberID: primitive.NewObjectID(),
		UserID:   callerID,
		Role:     inv.Role,
		JoinedAt: now,
	}
	if err := s.projects.AddMember(ctx, projectID, m); err != nil {
		return Result{}, err
	}
	res.Member = &m

	sctx, cancel := timeouts.Detached(ctx)
	defer cancel()

	s.notes.RecordMany(sctx, p.MemberIDs(), callerID, models.NotifyMemberJoined,
		"New member",
		fmt.Sprintf("%s joined %s", caller.Name, p.Name),
		map[string]any{
			"project_id":   projectID.Hex(),
			"project_name": p.Name,
			"user":         caller,
			"role":         m.Role.String(),
		})
	s.rt.Broadcast(sctx, realtime.EventMemberAdded, projectID, &caller, map[string]any{
		"member": m,
		"user":   caller,
	})
	return res, nil
}
