// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/teamhub/internal/app/store/projects"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/columnlimit"
	"github.com/dalemusser/teamhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/invitations"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxNameLength = 100

// Broadcaster is the real-time fan-out the project handlers use.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any)
	BroadcastTo(ctx context.Context, event string, projectID primitive.ObjectID, userIDs []primitive.ObjectID, actor *models.PublicUser, data any)
	Evict(ctx context.Context, projectID, userID primitive.ObjectID)
	CloseProject(ctx context.Context, projectID primitive.ObjectID)
}

// Handler serves projects, their membership, and invitations.
type Handler struct {
	DB          *mongo.Database
	Projects    *projectstore.Store
	Users       *userstore.Store
	Invitations *invitations.Service
	Notify      invitations.Recorder
	RT          Broadcaster
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, inv *invitations.Service, notes invitations.Recorder, rt Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Projects:    projectstore.New(db),
		Users:       userstore.New(db),
		Invitations: inv,
		Notify:      notes,
		RT:          rt,
		Log:         logger,
	}
}

func validateName(name string) *apperr.FieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return &apperr.FieldError{Field: "name", Message: "is required"}
	}
	if n > maxNameLength {
		return &apperr.FieldError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
	}
	return nil
}

func currentUser(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*auth.SessionUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apperr.Write(w, log, apperr.Unauthorized("authentication required"))
	}
	return u, ok
}

// List handles GET /api/projects: every project the caller is a member of.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Projects.ListForUser(ctx, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("list projects", err))
		return
	}
	httpjson.OK(w, list)
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/projects. The caller becomes the sole admin.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r, h.Log)
	if !ok {
		return
	}
	var in createRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if fe := validateName(in.Name); fe != nil {
		apperr.Write(w, h.Log, apperr.Validation(*fe))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Projects.Create(ctx, in.Name, in.Description, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("create project", err))
		return
	}
	h.Log.Info("project created", zap.String("project_id", p.ID.Hex()), zap.String("creator", u.ID.Hex()))
	httpjson.Created(w, p)
}

type projectView struct {
	Project   *models.Project     `json:"project"`
	Role      models.Role         `json:"role"`
	IsCreator bool                `json:"is_creator"`
	Users     []models.PublicUser `json:"users"`
}

// Get handles GET /api/projects/{projectID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, _ := projectpolicy.AccessFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Users.GetMany(ctx, a.Project.MemberIDs())
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("load project members", err))
		return
	}
	pub := make([]models.PublicUser, 0, len(users))
	for i := range users {
		pub = append(pub, users[i].Public())
	}
	httpjson.OK(w, projectView{Project: a.Project, Role: a.Role, IsCreator: a.IsCreator, Users: pub})
}

type settingsRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	DoingColumnLimit *int    `json:"doing_column_limit"`
}

// UpdateSettings handles PUT /api/projects/{projectID}/settings (admin).
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in settingsRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	var fields []apperr.FieldError
	if in.Name != nil {
		if fe := validateName(*in.Name); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if in.DoingColumnLimit != nil {
		if err := columnlimit.ValidateLimit(*in.DoingColumnLimit); err != nil {
			fields = append(fields, apperr.As(err).Fields...)
		}
	}
	if len(fields) > 0 {
		apperr.Write(w, h.Log, apperr.Validation(fields...))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := a.Project
	if in.Name != nil || in.Description != nil {
		name, desc := p.Name, p.Description
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			desc = strings.TrimSpace(*in.Description)
		}
		if err := h.Projects.UpdateDetails(ctx, p.ID, name, desc); err != nil {
			apperr.Write(w, h.Log, err)
			return
		}
	}
	if in.DoingColumnLimit != nil {
		if err := h.Projects.UpdateSettings(ctx, p.ID, models.ProjectSettings{DoingColumnLimit: *in.DoingColumnLimit}); err != nil {
			apperr.Write(w, h.Log, err)
			return
		}
	}

	h.reloadAndAnnounce(ctx, w, p.ID, u)
}

type contentRequest struct {
	Content string `json:"content"`
}

// UpdateContent handles PUT /api/projects/{projectID}/content (editor).
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in contentRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Projects.UpdateContent(ctx, a.Project.ID, htmlsanitize.Clean(in.Content)); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.reloadAndAnnounce(ctx, w, a.Project.ID, u)
}

func (h *Handler) reloadAndAnnounce(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID, u *auth.SessionUser) {
	p, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	sctx, scancel := timeouts.Detached(ctx)
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventProjectUpdated, id, &actor, p)
	httpjson.OK(w, p)
}
