package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	config "task-manager.com/task-manager/internal/configs"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("dsn")
		if dsn == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dsn = cfg.DatabaseDSN
		}

		db, err := config.NewDatabase(dsn)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		slog.Info("database schema up to date", "dsn", dsn)
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("dsn", "", "database DSN (defaults to DATABASE_DSN)")
	rootCmd.AddCommand(migrateCmd)
}
