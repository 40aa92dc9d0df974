// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig carries everything specific to TeamHub: the document store,
// identity tokens, the optional real-time relay, browser origins, and the
// notification retention policy.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI                    string        // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase               string        // Database name within MongoDB
	MongoMaxPoolSize            uint64        // Upper bound on pooled connections
	MongoServerSelectionTimeout time.Duration // How long a single connect attempt may wait for a server
	MongoSocketTimeout          time.Duration // Per-operation socket timeout
	MongoConnectRetries         int           // Connect attempts before startup fails
	MongoConnectBackoff         time.Duration // Pause between connect attempts

	// Identity tokens
	JWTSecret string        // HMAC key for bearer tokens (at least 32 bytes in production)
	JWTTTL    time.Duration // Token lifetime

	// Cross-process real-time relay (blank address keeps delivery process-local)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Browser origins allowed to call the API and open sockets
	CORSOrigins []string

	// Notifications
	NotificationRetention     time.Duration // Age past which notifications are deleted
	NotificationSweepInterval time.Duration // How often the retention sweep runs

	// Login throttling
	LoginRatePerMinute int // Per-IP login/register attempts per minute
}
