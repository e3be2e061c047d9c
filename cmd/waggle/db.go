package main

import (
	"fmt"

	"github.com/corvid-labs/waggle/internal/config"
	"github.com/corvid-labs/waggle/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema",
		Long:  "Runs GORM auto-migration for all Waggle tables against the configured store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

// connectFromConfig loads config and returns a GORM DB connection for the
// configured store backend.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var gormDB *gorm.DB
	switch cfg.Store.Driver {
	case "sqlite":
		gormDB, err = db.ConnectSQLite(cfg.Store.Path)
	default:
		gormDB, err = db.Connect(cfg.Store.User, cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect store: %w", err)
	}
	return cfg, gormDB, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
