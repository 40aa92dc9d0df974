package cmd

import (
	"fmt"
	"time"

	notificationstore "github.com/dalemusser/teamhub/internal/app/store/notifications"
	"github.com/dalemusser/teamhub/internal/app/system/workers"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/spf13/cobra"
)

var sweepRetention time.Duration

// sweepCmd runs one notification retention sweep
var sweepCmd = &cobra.Command{
	Use:   "sweep-notifications",
	Short: "Delete notifications older than the retention window",
	Long: `Run the notification retention sweep once.

The server runs the same sweep on a timer; this command is for catching up
after downtime or for cron-driven deployments.

Example:
  teamhubctl sweep-notifications --retention 168h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sweepRetention <= 0 {
			return fmt.Errorf("--retention must be positive")
		}
		db, closeDB, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := workers.SweepNotifications(cmd.Context(), notificationstore.New(db), newLogger(), sweepRetention, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d notification(s) older than %s\n", n, sweepRetention)
		return nil
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepRetention, "retention", models.NotificationRetention, "delete notifications older than this")
	rootCmd.AddCommand(sweepCmd)
}
