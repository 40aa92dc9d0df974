// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	projectstore "github.com/dalemusser/teamhub/internal/app/store/projects"
	notificationstore "github.com/dalemusser/teamhub/internal/app/store/notifications"
	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/notify"
	"github.com/dalemusser/teamhub/internal/app/system/ratelimit"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// perAccountLoginAttempts bounds login attempts per username per five minutes.
const perAccountLoginAttempts = 10

// services are the long-lived components built once in Startup and shared
// by BuildHandler and Shutdown.
type services struct {
	tokens  *auth.TokenService
	authn   *auth.Authenticator
	router  *realtime.Router
	notify  *notify.Service
	limiter *ratelimit.AuthLimiter
	runner  *workers.Runner
	ws      *realtime.Handler

	stopRelay context.CancelFunc
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the real-time router (and its relay), the notification side-channel, and
// starts the background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	s := &services{}

	s.tokens = auth.NewTokenService(appCfg.JWTSecret, appCfg.JWTTTL)
	s.authn = auth.NewAuthenticator(s.tokens, userstore.New(db), logger)

	s.router = realtime.NewRouter(realtime.NewHub(), projectstore.New(db), logger)
	if deps.Redis != nil {
		relay := realtime.NewRedisRelay(deps.Redis, realtime.DefaultRelayChannel, logger)
		s.router.SetRelay(relay)

		relayCtx, cancel := context.WithCancel(context.Background())
		s.stopRelay = cancel
		go func() {
			if err := relay.Run(relayCtx, s.router); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("real-time relay stopped", zap.Error(err))
			}
		}()
	}

	notes := notificationstore.New(db)
	s.notify = notify.New(notes, s.router, logger, appCfg.NotificationRetention)
	s.limiter = ratelimit.NewAuthLimiter(appCfg.LoginRatePerMinute, perAccountLoginAttempts)

	s.runner = workers.NewRunner(logger,
		workers.NotificationSweepJob(notes, logger, appCfg.NotificationSweepInterval, appCfg.NotificationRetention),
	)
	s.runner.Start()

	svc = s
	return nil
}
