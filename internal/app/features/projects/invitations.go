// internal/app/features/projects/invitations.go
package projects

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// inviteRequest names the invitee by id or by username.
type inviteRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Invite handles POST /api/projects/{projectID}/invitations (admin).
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in inviteRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	role, err := parseRole(in.Role)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	invitee, err := h.resolveInvitee(ctx, in)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	inv, err := h.Invitations.Create(ctx, a.Project, u.Public(), u.ID, invitee, role)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	httpjson.Created(w, inv)
}

func (h *Handler) resolveInvitee(ctx context.Context, in inviteRequest) (primitive.ObjectID, error) {
	if id := strings.TrimSpace(in.UserID); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return primitive.NilObjectID, apperr.Validation(apperr.FieldError{Field: "user_id", Message: "is not a valid id"})
		}
		return oid, nil
	}
	if strings.TrimSpace(in.Username) == "" {
		return primitive.NilObjectID, apperr.Validation(apperr.FieldError{Field: "username", Message: "user_id or username is required"})
	}
	usr, err := h.Users.GetByUsername(ctx, in.Username)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return usr.ID, nil
}

type respondRequest struct {
	Action string `json:"action"`
}

// Respond handles POST /api/projects/{projectID}/invitations/{invitationID}/respond.
// Only the invitee may answer; no membership is required.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r, h.Log)
	if !ok {
		return
	}
	pid, err := httpjson.PathID(r, "projectID", "project")
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	invID, err := httpjson.PathID(r, "invitationID", "invitation")
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	var in respondRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Invitations.Respond(ctx, pid, invID, u.Public(), u.ID, strings.ToLower(strings.TrimSpace(in.Action)))
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	httpjson.OK(w, res)
}

type pendingInvitation struct {
	ProjectID   primitive.ObjectID `json:"project_id"`
	ProjectName string             `json:"project_name"`
	Invitation  models.Invitation  `json:"invitation"`
	InvitedBy   *models.PublicUser `json:"invited_by,omitempty"`
}

// Mine handles GET /api/invitations: the caller's pending invitations.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Projects.ListWithPendingInvitation(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("list invitations", err))
		return
	}

	out := make([]pendingInvitation, 0, len(list))
	var inviters []primitive.ObjectID
	for i := range list {
		for _, inv := range list[i].Invitations {
			if inv.UserID != u.ID || inv.Status != models.InvitationPending {
				continue
			}
			out = append(out, pendingInvitation{ProjectID: list[i].ID, ProjectName: list[i].Name, Invitation: inv})
			inviters = append(inviters, inv.InvitedBy)
		}
	}

	users, err := h.Users.GetMany(ctx, inviters)
	if err != nil {
		h.Log.Warn("load inviters failed", zap.Error(err))
	}
	byID := make(map[primitive.ObjectID]models.PublicUser, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Public()
	}
	for i := range out {
		if p, ok := byID[out[i].Invitation.InvitedBy]; ok {
			out[i].InvitedBy = &p
		}
	}
	httpjson.OK(w, out)
}
