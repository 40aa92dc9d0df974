package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/teamhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:                    "mongodb://localhost:27017",
		MongoDatabase:               "teamhub",
		MongoMaxPoolSize:            10,
		MongoServerSelectionTimeout: 5 * time.Second,
		MongoSocketTimeout:          45 * time.Second,
		MongoConnectRetries:         1,
		MongoConnectBackoff:         time.Second,
		JWTSecret:                   "0123456789abcdef0123456789abcdef",
		JWTTTL:                      time.Hour,
		NotificationRetention:       7 * 24 * time.Hour,
		NotificationSweepInterval:   time.Hour,
		LoginRatePerMinute:          10,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "prod", func(*AppConfig) {}, false},
		{"short secret allowed in dev", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, false},
		{"short secret rejected in prod", "prod", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"empty secret", "dev", func(c *AppConfig) { c.JWTSecret = "" }, true},
		{"missing database", "dev", func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"zero ttl", "dev", func(c *AppConfig) { c.JWTTTL = 0 }, true},
		{"negative retention", "dev", func(c *AppConfig) { c.NotificationRetention = -time.Hour }, true},
		{"zero sweep interval", "dev", func(c *AppConfig) { c.NotificationSweepInterval = 0 }, true},
		{"no connect attempts", "dev", func(c *AppConfig) { c.MongoConnectRetries = 0 }, true},
		{"no login attempts", "dev", func(c *AppConfig) { c.LoginRatePerMinute = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a.test", "https://b.test"}, splitList(" http://a.test, ,https://b.test "))
	assert.Empty(t, splitList(""))
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"localhost:3000", "app.example.com"},
		originPatterns([]string{"http://localhost:3000", "https://app.example.com"}))
	assert.Equal(t, []string{"*"}, originPatterns([]string{"http://a.test", "*"}))
}

func TestStartupAndBuildHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	appCfg := validConfig()
	appCfg.CORSOrigins = []string{"http://localhost:3000"}
	coreCfg := &config.CoreConfig{Env: "dev"}
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	require.NoError(t, EnsureSchema(ctx, coreCfg, appCfg, deps, testLogger()))
	require.NoError(t, Startup(ctx, coreCfg, appCfg, deps, testLogger()))
	t.Cleanup(func() {
		// The test database owns the client; only stop what Startup began.
		_ = Shutdown(ctx, coreCfg, appCfg, DBDeps{}, testLogger())
		svc = nil
	})

	h, err := BuildHandler(coreCfg, appCfg, deps, testLogger())
	require.NoError(t, err)

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/projects", http.StatusUnauthorized},
		{"GET", "/api/auth/me", http.StatusUnauthorized},
		{"GET", "/api/notifications", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	svc = nil
	_, err := BuildHandler(&config.CoreConfig{}, validConfig(), DBDeps{}, testLogger())
	assert.Error(t, err)
}
