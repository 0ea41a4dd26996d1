package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/contacts-api/internal/config"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the configured SQLite or PostgreSQL database.`,
		RunE:  runMigrate,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cmd.Println("Connecting to database...")
	store, _, err := openStore(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	cmd.Println("Running migrations...")
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
