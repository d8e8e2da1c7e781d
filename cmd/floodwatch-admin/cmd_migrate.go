package main

import (
	"github.com/spf13/cobra"

	"floodwatch/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Create every floodwatch table and index that does not exist yet. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, log, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		defer log.Sync()

		if err := repository.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		log.Info("Schema applied")
		return nil
	},
}
