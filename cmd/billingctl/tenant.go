package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/spf13/cobra"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenant storage",
}

var tenantProvisionCmd = &cobra.Command{
	Use:     "provision",
	Short:   "Create and migrate the storage of an account",
	Example: `  billingctl tenant provision --email shop@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		t, err := current.registry.Resolve(cmd.Context(), email)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "provisioned %s as %s\n", t.Email, t.Key)
		return nil
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their tenant keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []database.User
		if err := current.db.WithContext(cmd.Context()).Order("email ASC").Find(&users).Error; err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tTENANT\tCREATED")
		for _, u := range users {
			key, err := tenant.Key(u.Email)
			if err != nil {
				key = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.Email, key, u.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantProvisionCmd, tenantListCmd)

	tenantProvisionCmd.Flags().String("email", "", "Account email")
	tenantProvisionCmd.MarkFlagRequired("email")
}
