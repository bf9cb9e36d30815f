package main

import (
	"fmt"
	"os"

	"github.com/Musavvir24/my-software/internal/config"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds what every subcommand opens.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *tenant.Registry
}

var current app

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Operate the billing backend's storage",
	Long: `billingctl runs maintenance tasks against the same databases the
billing server uses: schema migration, tenant provisioning and invoice
inspection. Configuration is read from the environment and .env.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			return err
		}

		db, err := database.Connect(cfg.DatabaseOptions())
		if err != nil {
			return err
		}
		if err := database.MigrateAccounts(db); err != nil {
			return fmt.Errorf("migrate accounts: %w", err)
		}

		driver, err := tenant.NewDriver(cfg.DatabaseOptions(), db)
		if err != nil {
			return err
		}

		current = app{cfg: cfg, db: db, registry: tenant.NewRegistry(driver)}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current.registry != nil {
			current.registry.Close()
		}
		if current.db != nil {
			if sqlDB, err := current.db.DB(); err == nil {
				return sqlDB.Close()
			}
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("billingctl")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
