// Package cmd contains the teamhubctl commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

var (
	// Used for flags
	mongoURI string
	dbName   string
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "teamhubctl",
	Short: "TeamHub operations tool",
	Long: `teamhubctl runs maintenance tasks against a TeamHub database.

These commands talk to MongoDB directly and do not need the server running.
Connection flags fall back to TEAMHUB_MONGO_URI and TEAMHUB_MONGO_DATABASE.

Examples:
  # Delete notifications past retention
  teamhubctl sweep-notifications --retention 168h

  # Create an account
  teamhubctl create-user --username alice --name "Alice" --password s3cret-pass

  # Print a bearer token for scripting against the API
  teamhubctl issue-token --username alice --jwt-secret "$TEAMHUB_JWT_SECRET"`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("TEAMHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", envOr("TEAMHUB_MONGO_DATABASE", "teamhub"), "MongoDB database name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLogger returns a development logger in verbose mode and a no-op one otherwise.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openDB connects to MongoDB and returns the selected database with a
// function that disconnects.
func openDB(ctx context.Context) (*mongo.Database, func(), error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(mongoURI).SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(dbName), closeFn, nil
}
