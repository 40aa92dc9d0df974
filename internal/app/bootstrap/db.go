// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/indexes"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB, retrying while the server comes up, and the
// optional Redis relay client.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	client, err := connectMongo(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}
	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	rdb, err := realtime.NewRedisClient(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}
	if rdb != nil {
		logger.Info("connected to Redis relay", zap.String("addr", appCfg.RedisAddr))
	}
	deps.Redis = rdb
	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetServerSelectionTimeout(appCfg.MongoServerSelectionTimeout).
		SetSocketTimeout(appCfg.MongoSocketTimeout)

	var lastErr error
	for attempt := 1; attempt <= appCfg.MongoConnectRetries; attempt++ {
		client, err := mongo.Connect(ctx, opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, appCfg.MongoServerSelectionTimeout)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				logger.Info("connected to MongoDB",
					zap.String("database", appCfg.MongoDatabase),
					zap.Int("attempt", attempt))
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err
		logger.Warn("MongoDB connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", appCfg.MongoConnectRetries),
			zap.Error(err))

		if attempt == appCfg.MongoConnectRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(appCfg.MongoConnectBackoff):
		}
	}
	return nil, fmt.Errorf("connect to MongoDB after %d attempts: %w", appCfg.MongoConnectRetries, lastErr)
}

// EnsureSchema creates the indexes every collection relies on.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
