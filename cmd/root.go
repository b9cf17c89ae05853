// root.go defines the root command and CLI execution entry point.
//
// Design: configuration is loaded once in PersistentPreRunE, after flag
// parsing, and shared through the package-level cfg variable. Commands
// that touch the database (serve, user) open it themselves; bootstrap
// commands (guide, version, extensions) work without one, so a fresh
// checkout can explore the CLI before any configuration exists.
package cmd

import (
	"fmt"
	"os"

	"github.com/payd-dev/payd/internal/audit"
	"github.com/payd-dev/payd/internal/config"
	"github.com/spf13/cobra"
)

// cfg is the loaded configuration, available to all commands after
// PersistentPreRunE has run.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "payd",
	Short: "Extensible billing and provisioning backend",
	Long: `payd is a billing backend with a pluggable extension system:
server extensions provision customer services (Proxmox, DigitalOcean),
payment gateways take payments (Stripe), and notifier extensions relay
host events (Discord).`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// The audit trail is best-effort; a missing trail never blocks
		// a command.
		if err := audit.Open(auditPath(cfg)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit trail unavailable: %v\n", err)
		}
		return nil
	},
}

// Execute runs the root command and handles process lifecycle. Exit code
// 1 indicates error.
func Execute() {
	err := rootCmd.Execute()
	audit.Close()
	if err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
