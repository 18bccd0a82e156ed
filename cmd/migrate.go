package cmd

import (
	"fmt"

	"college-records/internal/config"
	"college-records/internal/infrastructure/database"
	"college-records/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long:  "Manage the SQL migrations of the academic records schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	Long:  "Execute all pending database migrations",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  "Display the status of all migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	db, err := connect(cfg)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(cmd.Context(), db, cfg.Database.MigrationsDir); err != nil {
		logger.Error("Migration failed: %v", err)
		return err
	}

	fmt.Println("Migrations completed successfully!")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	db, err := connect(cfg)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		return err
	}
	defer database.Close(db)

	migrations, err := database.NewMigrationRunner(db, cfg.Database.MigrationsDir).GetMigrationStatus(cmd.Context())
	if err != nil {
		logger.Error("Failed to get migration status: %v", err)
		return err
	}

	fmt.Println("Migration Status:")
	fmt.Println("================")
	for _, migration := range migrations {
		status := "Pending"
		if migration.AppliedAt != nil {
			status = fmt.Sprintf("Applied at %s", migration.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("%s - %s [%s]\n", migration.ID, migration.Description, status)
	}
	return nil
}
