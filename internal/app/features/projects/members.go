// internal/app/features/projects/members.go
package projects

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/teamhub/internal/app/store/projects"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleRequest struct {
	Role string `json:"role"`
}

func parseRole(s string) (models.Role, error) {
	role, err := models.ParseRole(s)
	if err != nil {
		return models.RoleUnknown, apperr.Validation(apperr.FieldError{Field: "role", Message: "must be viewer, editor, or admin"})
	}
	return role, nil
}

// memberTarget resolves the {userID} path parameter to a member of the
// project in context.
func memberTarget(r *http.Request, p *models.Project) (models.Member, error) {
	uid, err := httpjson.PathID(r, "userID", "member")
	if err != nil {
		return models.Member{}, err
	}
	m, ok := p.FindMember(uid)
	if !ok {
		return models.Member{}, apperr.NotFound("member")
	}
	return m, nil
}

// ChangeRole handles PUT /api/projects/{projectID}/members/{userID}/role (admin).
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	m, err := memberTarget(r, a.Project)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	var in roleRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	role, err := parseRole(in.Role)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if m.UserID == a.Project.Creator {
		apperr.Write(w, h.Log, apperr.Conflict("cannot change the project creator's role"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Projects.SetMemberRole(ctx, a.Project.ID, m.UserID, role); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("member role changed",
		zap.String("project_id", a.Project.ID.Hex()),
		zap.String("user_id", m.UserID.Hex()),
		zap.String("from", m.Role.String()),
		zap.String("to", role.String()))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	h.Notify.Record(sctx, m.UserID, models.NotifyRoleChanged,
		"Role changed",
		fmt.Sprintf("Your role in %s is now %s", a.Project.Name, role),
		map[string]any{"project_id": a.Project.ID.Hex(), "project_name": a.Project.Name, "role": role.String()})

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventRoleChanged, a.Project.ID, &actor, map[string]any{
		"user_id":  m.UserID.Hex(),
		"old_role": m.Role,
		"new_role": role,
	})

	m.Role = role
	httpjson.OK(w, m)
}

// checkRemoval applies the removal rules in order: the creator can never be
// removed, whoever asks, and only admins remove anyone else.
func checkRemoval(a projectpolicy.Access, target primitive.ObjectID) error {
	if target == a.Project.Creator {
		return apperr.Conflict("cannot remove project creator")
	}
	if !a.Role.AtLeast(models.RoleAdmin) {
		return apperr.InsufficientRole(models.RoleAdmin, a.Role)
	}
	return nil
}

// RemoveMember handles DELETE /api/projects/{projectID}/members/{userID}. The
// route admits any member so the creator rule answers before the admin gate.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	uid, err := httpjson.PathID(r, "userID", "member")
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if err := checkRemoval(a, uid); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	m, err := memberTarget(r, a.Project)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	audience := a.Project.MemberIDs()
	if err := h.Projects.RemoveMember(ctx, a.Project.ID, m.UserID); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("member removed",
		zap.String("project_id", a.Project.ID.Hex()),
		zap.String("user_id", m.UserID.Hex()))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	// Out of the project room first; the removal notice still reaches the
	// user through their personal room.
	h.RT.Evict(sctx, a.Project.ID, m.UserID)

	h.Notify.Record(sctx, m.UserID, models.NotifyMemberRemoved,
		"Removed from project",
		fmt.Sprintf("You were removed from %s", a.Project.Name),
		map[string]any{"project_id": a.Project.ID.Hex(), "project_name": a.Project.Name})

	actor := u.Public()
	h.RT.BroadcastTo(sctx, realtime.EventMemberRemoved, a.Project.ID, audience, &actor, map[string]any{
		"user_id": m.UserID.Hex(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type deleteRequest struct {
	ConfirmName string `json:"confirm_name"`
	Password    string `json:"password"`
}

// Delete handles DELETE /api/projects/{projectID} (admin). The caller must
// retype the project name and their password.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in deleteRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	var fields []apperr.FieldError
	if in.ConfirmName != a.Project.Name {
		fields = append(fields, apperr.FieldError{Field: "confirm_name", Message: "does not match the project name"})
	}
	if in.Password == "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "is required"})
	}
	if len(fields) > 0 {
		apperr.Write(w, h.Log, apperr.Validation(fields...))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "project delete cascade")
	defer cancel()

	caller, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if !auth.CheckPassword(caller.PasswordHash, in.Password) {
		apperr.Write(w, h.Log, apperr.Forbidden("password is incorrect"))
		return
	}

	audience := a.Project.MemberIDs()
	if err := deleteCascade(ctx, h, a.Project.ID); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("project deleted",
		zap.String("project_id", a.Project.ID.Hex()),
		zap.String("by", u.ID.Hex()))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.BroadcastTo(sctx, realtime.EventProjectDeleted, a.Project.ID, audience, &actor, map[string]any{
		"project_id": a.Project.ID.Hex(),
		"name":       a.Project.Name,
	})
	h.RT.CloseProject(sctx, a.Project.ID)
	w.WriteHeader(http.StatusNoContent)
}

func deleteCascade(ctx context.Context, h *Handler, id primitive.ObjectID) error {
	if err := projectstore.DeleteCascade(ctx, h.DB, h.Log, id); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return err
		}
		return apperr.Internal("delete project", err)
	}
	return nil
}
