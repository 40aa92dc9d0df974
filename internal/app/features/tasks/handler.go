// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	taskstore "github.com/dalemusser/teamhub/internal/app/store/tasks"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/columnlimit"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	maxTitleLength   = 200
	maxCommentLength = 2000
)

// Notifier records durable notifications for task activity.
type Notifier interface {
	RecordMany(ctx context.Context, userIDs []primitive.ObjectID, skip primitive.ObjectID, typ, title, message string, data map[string]any)
}

// Broadcaster fans task events out to the project room.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any)
}

// Handler serves the task board.
type Handler struct {
	Tasks  *taskstore.Store
	Guard  *columnlimit.Guard
	Notify Notifier
	RT     Broadcaster
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, notes Notifier, rt Broadcaster, logger *zap.Logger) *Handler {
	store := taskstore.New(db)
	return &Handler{
		Tasks:  store,
		Guard:  columnlimit.New(store),
		Notify: notes,
		RT:     rt,
		Log:    logger,
	}
}

// board is the column-grouped task list.
type board struct {
	Todo  []models.Task `json:"todo"`
	Doing []models.Task `json:"doing"`
	Done  []models.Task `json:"done"`
}

// List handles GET /api/projects/{projectID}/tasks. Pass archived=true to
// include archived tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	a, _ := projectpolicy.AccessFrom(r.Context())
	includeArchived := r.URL.Query().Get("archived") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Tasks.ListByProject(ctx, a.Project.ID, includeArchived)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("list tasks", err))
		return
	}
	b := board{Todo: []models.Task{}, Doing: []models.Task{}, Done: []models.Task{}}
	for _, t := range list {
		switch t.Column {
		case models.ColumnDoing:
			b.Doing = append(b.Doing, t)
		case models.ColumnDone:
			b.Done = append(b.Done, t)
		default:
			b.Todo = append(b.Todo, t)
		}
	}
	httpjson.OK(w, b)
}

type createRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Column      string     `json:"column"`
	Priority    string     `json:"priority"`
	AssignedTo  []string   `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// Create handles POST /api/projects/{projectID}/tasks (editor).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in createRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if in.Column == "" {
		in.Column = models.ColumnTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	fields := validateTitle(in.Title)
	fields = append(fields, validateColumnAndPriority(in.Column, in.Priority)...)
	assignees, fes := resolveAssignees(a.Project, in.AssignedTo)
	fields = append(fields, fes...)
	if len(fields) > 0 {
		apperr.Write(w, h.Log, apperr.Validation(fields...))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Guard.Check(ctx, a.Project, nil, "", in.Column); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	t, err := h.Tasks.Create(ctx, models.Task{
		ProjectID:   a.Project.ID,
		Title:       in.Title,
		Description: in.Description,
		Column:      in.Column,
		Priority:    in.Priority,
		AssignedTo:  assignees,
		DueDate:     in.DueDate,
		CreatedBy:   u.ID,
	})
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("create task", err))
		return
	}
	h.Log.Info("task created",
		zap.String("project_id", a.Project.ID.Hex()),
		zap.String("task_id", t.ID.Hex()),
		zap.String("column", t.Column))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	h.notifyAssigned(sctx, a.Project, &t, assignees, u.ID)
	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventTaskCreated, a.Project.ID, &actor, t)
	httpjson.Created(w, t)
}

// Get handles GET /api/tasks/{taskID} (viewer).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ta, _ := projectpolicy.TaskAccessFrom(r.Context())
	httpjson.OK(w, ta.Task)
}

type updateRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Column       *string    `json:"column"`
	Priority     *string    `json:"priority"`
	AssignedTo   *[]string  `json:"assigned_to"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// Update handles PUT /api/tasks/{taskID} (editor). A column change is a move
// and goes through the doing-column guard.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ta, _ := projectpolicy.TaskAccessFrom(r.Context())
	p, t := ta.Project, ta.Task

	var in updateRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	var upd taskstore.Update
	var fields []apperr.FieldError
	if in.Title != nil {
		fields = append(fields, validateTitle(*in.Title)...)
		upd.Title = in.Title
	}
	if in.Description != nil {
		upd.Description = in.Description
	}
	column, priority := t.Column, t.Priority
	if in.Column != nil {
		column = *in.Column
		upd.Column = in.Column
	}
	if in.Priority != nil {
		priority = *in.Priority
		upd.Priority = in.Priority
	}
	fields = append(fields, validateColumnAndPriority(column, priority)...)
	var assignees []primitive.ObjectID
	if in.AssignedTo != nil {
		var fes []apperr.FieldError
		assignees, fes = resolveAssignees(p, *in.AssignedTo)
		fields = append(fields, fes...)
		upd.AssignedTo = &assignees
	}
	switch {
	case in.ClearDueDate:
		var none *time.Time
		upd.DueDate = &none
	case in.DueDate != nil:
		upd.DueDate = &in.DueDate
	}
	if len(fields) > 0 {
		apperr.Write(w, h.Log, apperr.Validation(fields...))
		return
	}
	if upd.Empty() {
		httpjson.OK(w, t)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if !t.IsArchived {
		if err := h.Guard.Check(ctx, p, &t.ID, t.Column, column); err != nil {
			apperr.Write(w, h.Log, err)
			return
		}
	}
	updated, err := h.Tasks.Apply(ctx, t.ID, upd)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	if in.AssignedTo != nil {
		h.notifyAssigned(sctx, p, updated, newlyAssigned(t.AssignedTo, assignees), u.ID)
	}

	actor := u.Public()
	if updated.Column != t.Column {
		h.Log.Info("task moved",
			zap.String("task_id", t.ID.Hex()),
			zap.String("from", t.Column),
			zap.String("to", updated.Column))
		h.RT.Broadcast(sctx, realtime.EventTaskMoved, p.ID, &actor, map[string]any{
			"task":        updated,
			"from_column": t.Column,
			"to_column":   updated.Column,
		})
	} else {
		h.RT.Broadcast(sctx, realtime.EventTaskUpdated, p.ID, &actor, updated)
	}
	httpjson.OK(w, updated)
}

type commentRequest struct {
	Text string `json:"text"`
}

// Comment handles POST /api/tasks/{taskID}/comments (editor).
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ta, _ := projectpolicy.TaskAccessFrom(r.Context())

	var in commentRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	text := strings.TrimSpace(in.Text)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		apperr.Write(w, h.Log, apperr.Validation(apperr.FieldError{Field: "text", Message: "is required"}))
		return
	case n > maxCommentLength:
		apperr.Write(w, h.Log, apperr.Validation(apperr.FieldError{Field: "text", Message: fmt.Sprintf("must be at most %d characters", maxCommentLength)}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Tasks.AddComment(ctx, ta.Task.ID, models.Comment{UserID: u.ID, Text: text})
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	// Assignees and the author hear about comments; the commenter does not.
	audience := append([]primitive.ObjectID{updated.CreatedBy}, updated.AssignedTo...)
	audience = keepMembers(ta.Project, dedupe(audience))
	h.Notify.RecordMany(sctx, audience, u.ID, models.NotifyTaskComment,
		"New comment",
		fmt.Sprintf("%s commented on %s", u.Name, updated.Title),
		map[string]any{"project_id": ta.Project.ID.Hex(), "task_id": updated.ID.Hex()})

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventTaskUpdated, ta.Project.ID, &actor, updated)
	httpjson.Created(w, updated)
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// Archive handles POST /api/tasks/{taskID}/archive (editor). The body may
// carry {"archived": false} to restore. Restoring into doing is a move.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ta, _ := projectpolicy.TaskAccessFrom(r.Context())

	var in archiveRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	archived := true
	if in.Archived != nil {
		archived = *in.Archived
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if !archived && ta.Task.IsArchived {
		if err := h.Guard.Check(ctx, ta.Project, nil, "", ta.Task.Column); err != nil {
			apperr.Write(w, h.Log, err)
			return
		}
	}
	updated, err := h.Tasks.SetArchived(ctx, ta.Task.ID, archived)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventTaskUpdated, ta.Project.ID, &actor, updated)
	httpjson.OK(w, updated)
}

// Delete handles DELETE /api/tasks/{taskID}. The route admits editors; the
// admin-only gate is checked here.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ta, _ := projectpolicy.TaskAccessFrom(r.Context())

	if err := projectpolicy.RequireAdminToDelete(ta.Access); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Tasks.Delete(ctx, ta.Task.ID); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("task deleted",
		zap.String("project_id", ta.Project.ID.Hex()),
		zap.String("task_id", ta.Task.ID.Hex()))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventTaskDeleted, ta.Project.ID, &actor, map[string]any{
		"task_id": ta.Task.ID.Hex(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) notifyAssigned(ctx context.Context, p *models.Project, t *models.Task, userIDs []primitive.ObjectID, actor primitive.ObjectID) {
	if len(userIDs) == 0 {
		return
	}
	h.Notify.RecordMany(ctx, userIDs, actor, models.NotifyTaskAssigned,
		"Task assigned",
		fmt.Sprintf("You were assigned to %s in %s", t.Title, p.Name),
		map[string]any{"project_id": p.ID.Hex(), "task_id": t.ID.Hex()})
}
