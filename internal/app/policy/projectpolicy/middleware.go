package projectpolicy

import (
	"net/http"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RequireProject authorizes the signed-in user against the project named by
// the URL parameter param and stores the Access on the request context.
func (e *Evaluator) RequireProject(log *zap.Logger, param string, required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.CurrentUser(r)
			if !ok {
				apperr.Write(w, log, apperr.Unauthorized("authentication required"))
				return
			}
			pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
			if err != nil {
				apperr.Write(w, log, apperr.NotFound("project"))
				return
			}
			a, err := e.Authorize(r.Context(), u.ID, pid, required)
			if err != nil {
				apperr.Write(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), a)))
		})
	}
}

// RequireTask is RequireProject resolved through the task named by param.
func (e *Evaluator) RequireTask(log *zap.Logger, param string, required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.CurrentUser(r)
			if !ok {
				apperr.Write(w, log, apperr.Unauthorized("authentication required"))
				return
			}
			tid, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
			if err != nil {
				apperr.Write(w, log, apperr.NotFound("task"))
				return
			}
			ta, err := e.AuthorizeTask(r.Context(), u.ID, tid, required)
			if err != nil {
				apperr.Write(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTaskAccess(r.Context(), ta)))
		})
	}
}
