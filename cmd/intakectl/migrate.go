package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intake-backend/internal/shared/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply database migrations using DATABASE_URL",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	ctx := cmd.Context()
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sqlDB.Close()

	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}
	switch direction {
	case "down":
		err = db.RollbackLast(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	default:
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		return err
	}
	version, err := db.CurrentVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	printSuccess("Database at version %d", version)
	return nil
}
