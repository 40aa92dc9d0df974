// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"strings"

	accountfeature "github.com/dalemusser/teamhub/internal/app/features/account"
	healthfeature "github.com/dalemusser/teamhub/internal/app/features/health"
	notesfeature "github.com/dalemusser/teamhub/internal/app/features/notes"
	notificationsfeature "github.com/dalemusser/teamhub/internal/app/features/notifications"
	projectsfeature "github.com/dalemusser/teamhub/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/teamhub/internal/app/features/tasks"
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/teamhub/internal/app/store/projects"
	taskstore "github.com/dalemusser/teamhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/httplog"
	"github.com/dalemusser/teamhub/internal/app/system/invitations"
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. TeamHub serves:
//   - /ws: the real-time socket, outside the logging and metrics wrappers
//     because those cannot follow a hijacked connection
//   - /api/auth: registration, login, and the current user
//   - /api/...: every bearer-authenticated feature router
//   - /health and /metrics for operators
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := svc
	if s == nil {
		return nil, errors.New("bootstrap: BuildHandler called before Startup")
	}
	db := deps.MongoDatabase
	users := userstore.New(db)
	projects := projectstore.New(db)
	pol := projectpolicy.New(projects, taskstore.New(db))

	s.ws = realtime.NewHandler(s.router, s.authn, pol, users, logger)
	s.ws.OriginPatterns = originPatterns(appCfg.CORSOrigins)

	inv := invitations.New(projects, users, s.notify, s.router, logger)

	root := chi.NewRouter()
	root.Get("/ws", s.ws.ServeHTTP)

	root.Group(func(r chi.Router) {
		r.Use(httplog.Middleware(logger))
		r.Use(metrics.Middleware)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httplog.RequestIDHeader},
			ExposedHeaders:   []string{httplog.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		// Health check endpoint for load balancers and orchestrators
		healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
		r.Mount("/health", healthfeature.Routes(healthHandler))
		r.Handle("/metrics", metrics.Handler())

		r.Route("/api", func(api chi.Router) {
			accountHandler := accountfeature.NewHandler(users, s.tokens, s.limiter, logger)
			api.Mount("/auth", accountfeature.Routes(accountHandler, s.authn.RequireBearer))

			api.Group(func(p chi.Router) {
				p.Use(s.authn.RequireBearer)

				projectsfeature.Register(p, projectsfeature.NewHandler(db, inv, s.notify, s.router, logger), pol)
				tasksfeature.Register(p, tasksfeature.NewHandler(db, s.notify, s.router, logger), pol)
				notesfeature.Register(p, notesfeature.NewHandler(db, s.router, logger), pol)
				notificationsfeature.Register(p, notificationsfeature.NewHandler(s.notify, logger))
			})
		})
	})

	return root, nil
}

// originPatterns converts CORS origins into the host patterns the socket
// upgrade checks against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}

