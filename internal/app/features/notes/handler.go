// internal/app/features/notes/handler.go
package notes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	notestore "github.com/dalemusser/teamhub/internal/app/store/notes"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	maxTitleLength = 200
	maxTags        = 20
)

// Broadcaster fans note events out to the project room.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any)
}

// Handler serves project notes.
type Handler struct {
	Notes *notestore.Store
	RT    Broadcaster
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, rt Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{Notes: notestore.New(db), RT: rt, Log: logger}
}

type noteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (in *noteRequest) validate() error {
	var fields []apperr.FieldError
	switch n := utf8.RuneCountInString(strings.TrimSpace(in.Title)); {
	case n == 0:
		fields = append(fields, apperr.FieldError{Field: "title", Message: "is required"})
	case n > maxTitleLength:
		fields = append(fields, apperr.FieldError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", maxTitleLength)})
	}
	in.Tags = notestore.NormalizeTags(in.Tags)
	if len(in.Tags) > maxTags {
		fields = append(fields, apperr.FieldError{Field: "tags", Message: fmt.Sprintf("at most %d tags", maxTags)})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	in.Content = htmlsanitize.Clean(in.Content)
	return nil
}

// List handles GET /api/projects/{projectID}/notes. Filters: tag, archived=true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	a, _ := projectpolicy.AccessFrom(r.Context())
	q := r.URL.Query()
	f := notestore.ListFilter{Tag: q.Get("tag"), Archived: q.Get("archived") == "true"}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Notes.ListByProject(ctx, a.Project.ID, f)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("list notes", err))
		return
	}
	if list == nil {
		list = []models.Note{}
	}
	httpjson.OK(w, list)
}

// Create handles POST /api/projects/{projectID}/notes (editor).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	a, _ := projectpolicy.AccessFrom(r.Context())

	var in noteRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if err := in.validate(); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.Create(ctx, models.Note{
		ProjectID: a.Project.ID,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		CreatedBy: u.ID,
	})
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("create note", err))
		return
	}
	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventNoteCreated, a.Project.ID, &actor, n)
	httpjson.Created(w, n)
}

// Update handles PUT /api/notes/{noteID} (editor).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in noteRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if err := in.validate(); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, n *models.Note, editor primitive.ObjectID) (*models.Note, error) {
		return h.Notes.Update(ctx, n.ID, editor, in.Title, in.Content, in.Tags)
	})
}

// Pin handles POST /api/notes/{noteID}/pin (editor). It toggles.
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, n *models.Note, editor primitive.ObjectID) (*models.Note, error) {
		if n.IsArchived {
			return nil, apperr.Conflict("archived notes cannot be pinned")
		}
		return h.Notes.TogglePin(ctx, n.ID, editor)
	})
}

// Archive handles POST /api/notes/{noteID}/archive (editor).
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, n *models.Note, editor primitive.ObjectID) (*models.Note, error) {
		return h.Notes.SetArchived(ctx, n.ID, editor, true)
	})
}

// Restore handles POST /api/notes/{noteID}/restore (editor).
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, n *models.Note, editor primitive.ObjectID) (*models.Note, error) {
		return h.Notes.SetArchived(ctx, n.ID, editor, false)
	})
}

// Delete handles DELETE /api/notes/{noteID} (editor).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	na, _ := accessFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notes.Delete(ctx, na.Note.ID); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("note deleted",
		zap.String("project_id", na.Project.ID.Hex()),
		zap.String("note_id", na.Note.ID.Hex()))

	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventNoteDeleted, na.Project.ID, &actor, map[string]any{
		"note_id": na.Note.ID.Hex(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type mutation func(ctx context.Context, n *models.Note, editor primitive.ObjectID) (*models.Note, error)

// mutate runs fn against the note in context and announces the result.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn mutation) {
	u, _ := auth.CurrentUser(r)
	na, _ := accessFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := fn(ctx, na.Note, u.ID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	sctx, scancel := timeouts.Detached(r.Context())
	defer scancel()

	actor := u.Public()
	h.RT.Broadcast(sctx, realtime.EventNoteUpdated, na.Project.ID, &actor, n)
	httpjson.OK(w, n)
}
