package notes

import (
	"context"
	"net/http"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/domain/models"
)

// noteAccess is project access resolved through a note.
type noteAccess struct {
	projectpolicy.Access
	Note *models.Note
}

type ctxKey struct{}

func accessFrom(ctx context.Context) (noteAccess, bool) {
	na, ok := ctx.Value(ctxKey{}).(noteAccess)
	return na, ok
}

// requireNote loads the note named by the noteID parameter and authorizes the
// caller against its project. A missing note is NotFound regardless of
// membership, the same as tasks.
func (h *Handler) requireNote(pol *projectpolicy.Evaluator, required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.CurrentUser(r)
			if !ok {
				apperr.Write(w, h.Log, apperr.Unauthorized("authentication required"))
				return
			}
			id, err := httpjson.PathID(r, "noteID", "note")
			if err != nil {
				apperr.Write(w, h.Log, err)
				return
			}
			n, err := h.Notes.GetByID(r.Context(), id)
			if err != nil {
				apperr.Write(w, h.Log, err)
				return
			}
			a, err := pol.Authorize(r.Context(), u.ID, n.ProjectID, required)
			if err != nil {
				apperr.Write(w, h.Log, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, noteAccess{Access: a, Note: n})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
