package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage SQL schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openSQL(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.MigrateUp(ctx, conn)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Int("count", applied), zap.String("driver", conn.DriverName()))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openSQL(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		statuses, err := db.MigrateStatus(ctx, conn)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
		for _, s := range statuses {
			status, appliedAt, duration := "pending", "-", "-"
			if s.Applied {
				status = "applied"
				duration = fmt.Sprintf("%dms", s.ExecutionMs)
				if s.AppliedAt != nil {
					appliedAt = s.AppliedAt.Format(time.RFC3339)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, status, appliedAt, duration)
		}
		return w.Flush()
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// openSQL opens the SQL database named by --db-url; MongoDB needs no migrations.
func openSQL(ctx context.Context) (*sqlx.DB, error) {
	url, err := storeURL()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}
