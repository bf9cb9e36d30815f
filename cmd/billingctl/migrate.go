package main

import (
	"fmt"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the accounts database and every account's tenant",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")
	ctx := cmd.Context()

	var users []database.User
	if err := current.db.WithContext(ctx).Order("email ASC").Find(&users).Error; err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	// Resolve migrates a tenant's schema when it opens it
	for _, u := range users {
		if _, err := current.registry.Resolve(ctx, u.Email); err != nil {
			return fmt.Errorf("migrate tenant of %s: %w", u.Email, err)
		}
	}

	log.Info().Int("tenants", len(users)).Msg("migration complete")
	fmt.Fprintf(cmd.OutOrStdout(), "migrated accounts and %d tenants\n", len(users))
	return nil
}
