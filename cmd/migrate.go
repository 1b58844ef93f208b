package cmd

import (
	"inkdesk-backend/config"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, db, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := config.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
