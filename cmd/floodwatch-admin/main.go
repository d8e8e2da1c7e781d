// Command floodwatch-admin performs one-off operational tasks against the
// floodwatch database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"floodwatch/common/database"
	"floodwatch/common/logger"
	"floodwatch/internal/config"
	"floodwatch/internal/domain"
)

// cliActor stands in for a signed-in admin when the CLI calls services.
var cliActor = &domain.Profile{UserID: "floodwatch-admin", Role: domain.RoleMDRRMOAdmin, FullName: "floodwatch-admin"}

var rootCmd = &cobra.Command{
	Use:   "floodwatch-admin",
	Short: "Administrative tasks for floodwatch",
	Long: `Administrative tasks for floodwatch.

Available subcommands:
  migrate    - Apply the database schema
  seed-admin - Create an mdrrmo_admin login
  export     - Write an Excel report to a file`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedAdminCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and opens the database; the caller closes both.
func setup(ctx context.Context) (*sql.DB, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "floodwatch-admin")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}
