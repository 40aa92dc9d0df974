// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minProdSecretLength is the shortest JWT secret accepted in production.
const minProdSecretLength = 32

// appConfigKeys defines the configuration keys for TeamHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TEAMHUB_MONGO_URI, TEAMHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "teamhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_server_selection_timeout", Default: "5s", Desc: "MongoDB server selection timeout per connect attempt"},
	{Name: "mongo_socket_timeout", Default: "45s", Desc: "MongoDB socket timeout"},
	{Name: "mongo_connect_retries", Default: 5, Desc: "MongoDB connect attempts before giving up"},
	{Name: "mongo_connect_backoff", Default: "5s", Desc: "Pause between MongoDB connect attempts"},

	// Identity tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Bearer token signing secret (must be strong in production)"},
	{Name: "jwt_ttl", Default: "168h", Desc: "Bearer token lifetime"},

	// Real-time relay
	{Name: "redis_addr", Default: "", Desc: "Redis address for cross-process real-time delivery (blank disables)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Browser clients
	{Name: "cors_origins", Default: "http://localhost:3000", Desc: "Comma-separated origins allowed for the API and sockets"},

	// Notifications
	{Name: "notification_retention", Default: "168h", Desc: "Notifications older than this are deleted"},
	{Name: "notification_sweep_interval", Default: "24h", Desc: "How often the notification retention sweep runs"},

	// Login throttling
	{Name: "login_rate_per_minute", Default: 10, Desc: "Login/register attempts allowed per IP per minute"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TEAMHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TEAMHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:                    appValues.String("mongo_uri"),
		MongoDatabase:               appValues.String("mongo_database"),
		MongoMaxPoolSize:            uint64(appValues.Int("mongo_max_pool_size")),
		MongoServerSelectionTimeout: appValues.Duration("mongo_server_selection_timeout", 5*time.Second),
		MongoSocketTimeout:          appValues.Duration("mongo_socket_timeout", 45*time.Second),
		MongoConnectRetries:         appValues.Int("mongo_connect_retries"),
		MongoConnectBackoff:         appValues.Duration("mongo_connect_backoff", 5*time.Second),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 7*24*time.Hour),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		CORSOrigins: splitList(appValues.String("cors_origins")),

		NotificationRetention:     appValues.Duration("notification_retention", models.NotificationRetention),
		NotificationSweepInterval: appValues.Duration("notification_sweep_interval", 24*time.Hour),

		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),
	}

	return coreCfg, appCfg, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if coreCfg.Env == "prod" && len(appCfg.JWTSecret) < minProdSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d bytes in production", minProdSecretLength)
	}

	durations := map[string]time.Duration{
		"jwt_ttl":                        appCfg.JWTTTL,
		"mongo_server_selection_timeout": appCfg.MongoServerSelectionTimeout,
		"mongo_socket_timeout":           appCfg.MongoSocketTimeout,
		"notification_retention":         appCfg.NotificationRetention,
		"notification_sweep_interval":    appCfg.NotificationSweepInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if appCfg.MongoConnectRetries < 1 {
		return fmt.Errorf("mongo_connect_retries must be at least 1")
	}
	if appCfg.LoginRatePerMinute < 1 {
		return fmt.Errorf("login_rate_per_minute must be at least 1")
	}

	return nil
}
