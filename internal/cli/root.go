// Package cli wires configuration, storage and services into the contacts
// command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the contacts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Contacts API server",
		Long: `A multi-tenant contact management API: accounts with email
confirmation and password reset, and a private address book per account.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
